package domain

import "time"

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
)

// Intent is what a client submits when it wants to send a message. Exactly
// one of Group / Recipient must be set, and at least one of Body /
// AttachmentRef must be non-empty. The router enforces both before any side
// effect.
type Intent struct {
	Group         GroupID
	Recipient     UserID
	Body          string
	AttachmentRef string
	Kind          MessageKind
}

func (i Intent) IsGroup() bool   { return i.Group != "" }
func (i Intent) IsPrivate() bool { return i.Recipient != "" }

// MessageRef identifies a persisted message in the message store.
type MessageRef string

// Message is the persisted record. Immutable once written except for Read.
type Message struct {
	Ref           MessageRef  `json:"ref"`
	Sender        UserID      `json:"sender"`
	Group         GroupID     `json:"group,omitempty"`
	Recipient     UserID      `json:"recipient,omitempty"`
	Body          string      `json:"body,omitempty"`
	AttachmentRef string      `json:"attachment_ref,omitempty"`
	Kind          MessageKind `json:"kind"`
	Read          bool        `json:"read"`
	SentAt        time.Time   `json:"sent_at"`
}

// ReadScope selects messages for a bulk read-state update: either every
// unread message in Group not authored by the reader, or every unread private
// message from Sender to the reader. Exactly one of the two must be set.
type ReadScope struct {
	Group  GroupID
	Sender UserID
}

type NotificationRef string

// Notification is the durable fallback record created for a recipient who had
// zero live connections at dispatch time. Its content is opaque to the
// coordinator beyond addressing.
type Notification struct {
	Ref       NotificationRef `json:"ref"`
	Recipient UserID          `json:"recipient"`
	Sender    UserID          `json:"sender"`
	Group     GroupID         `json:"group,omitempty"`
	Message   MessageRef      `json:"message"`
	Preview   string          `json:"preview,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
