package domain

type RoomName string

// GroupRoom names the broadcast room shared by all members of a cooperative
// group. DirectRoom names the per-user room used for point-to-point
// addressing; it is never broadcast to by group dispatch.
func GroupRoom(g GroupID) RoomName { return RoomName("g:" + string(g)) }

func DirectRoom(u UserID) RoomName { return RoomName("u:" + string(u)) }
