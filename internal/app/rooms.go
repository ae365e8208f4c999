package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

// Rooms maintains membership of connections in named broadcast scopes. It
// stores only connection IDs; endpoints are resolved through the registry at
// send time so a room never outlives a connection's transport.
type Rooms struct {
	registry *Registry

	mu      sync.RWMutex
	members map[domain.RoomName]map[core.ConnID]struct{}
	joined  map[core.ConnID]map[domain.RoomName]struct{}
}

func NewRooms(registry *Registry) *Rooms {
	return &Rooms{
		registry: registry,
		members:  make(map[domain.RoomName]map[core.ConnID]struct{}),
		joined:   make(map[core.ConnID]map[domain.RoomName]struct{}),
	}
}

// Join is idempotent.
func (r *Rooms) Join(cid core.ConnID, room domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[room]; !ok {
		r.members[room] = make(map[core.ConnID]struct{})
	}
	r.members[room][cid] = struct{}{}
	if _, ok := r.joined[cid]; !ok {
		r.joined[cid] = make(map[domain.RoomName]struct{})
	}
	r.joined[cid][room] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("cid", string(cid)).Str("room", string(room)).Msg("joined room")
}

// Leave is idempotent. Empty rooms are dropped to keep the map from leaking.
func (r *Rooms) Leave(cid core.ConnID, room domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(cid, room)
}

// LeaveAll removes the connection from every room it had joined, typically on
// disconnect.
func (r *Rooms) LeaveAll(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.joined[cid] {
		r.leaveLocked(cid, room)
	}
	delete(r.joined, cid)
	log.Info().Str("module", "app.rooms").Str("cid", string(cid)).Msg("left all rooms")
}

func (r *Rooms) leaveLocked(cid core.ConnID, room domain.RoomName) {
	if set, ok := r.members[room]; ok {
		delete(set, cid)
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	if set, ok := r.joined[cid]; ok {
		delete(set, room)
	}
}

// MemberCount reports the number of live connections joined to the room.
func (r *Rooms) MemberCount(room domain.RoomName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

// Broadcast pushes the frame to every connection in the room except the
// optionally excluded one. Membership is snapshotted under the read lock and
// sends happen outside it, so a slow socket never stalls joins from other
// connections. Failed sends are reported for eviction, not retried.
func (r *Rooms) Broadcast(room domain.RoomName, f core.Frame, exclude core.ConnID) core.DeliveryResult {
	r.mu.RLock()
	snapshot := make([]core.ConnID, 0, len(r.members[room]))
	for cid := range r.members[room] {
		if cid == exclude {
			continue
		}
		snapshot = append(snapshot, cid)
	}
	r.mu.RUnlock()

	res := core.DeliveryResult{}
	for _, cid := range snapshot {
		conn, ok := r.registry.Resolve(cid)
		if !ok {
			// Disconnected between snapshot and send.
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		if err := conn.TrySend(f); err != nil {
			log.Warn().Str("module", "app.rooms").Str("cid", string(cid)).Str("room", string(room)).Err(err).Msg("broadcast send failed")
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.Sent++
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(room)).Int("sent", res.Sent).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// evictConn tears down a connection whose send failed: close the endpoint,
// leave every room, drop it from the registry. Shared by every dispatch path
// that fans out, so stale presence never outlives a failed send.
func evictConn(reg *Registry, rooms *Rooms, cid core.ConnID) {
	log.Info().Str("module", "app.rooms").Str("cid", string(cid)).Msg("evicting stale connection")
	if conn, ok := reg.Resolve(cid); ok {
		conn.Close()
	}
	rooms.LeaveAll(cid)
	reg.Remove(cid)
}
