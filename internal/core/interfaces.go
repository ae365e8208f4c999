package core

import (
	"context"

	"github.com/dkeye/courier/internal/domain"
)

// Frame is a raw payload pushed to a live connection.
type Frame []byte

// ConnID identifies one live connection. A user may own many at once.
type ConnID string

// Conn abstracts a transport endpoint (WebSocket in production, a fake in
// tests). Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// DeliveryResult reports fan-out stats and connections whose send failed, so
// the caller can evict them.
type DeliveryResult struct {
	Sent    int
	Dropped []ConnID
}

// Authenticator verifies a raw credential into a user identity plus optional
// group membership. Performed once, before admission.
type Authenticator interface {
	Verify(credential string) (domain.Identity, error)
}

// GroupDirectory is the external membership collaborator.
type GroupDirectory interface {
	MembersOf(ctx context.Context, g domain.GroupID) ([]domain.UserID, error)
}

// ProfileDirectory resolves display attributes for payload enrichment. A
// lookup error for a recipient also serves as the existence check.
type ProfileDirectory interface {
	DisplayInfo(ctx context.Context, u domain.UserID) (domain.Profile, error)
}

// MessageStore is the external durable store for messages. Save is the
// durability boundary of a dispatch: live delivery and notifications happen
// only after it succeeds.
type MessageStore interface {
	Save(ctx context.Context, m domain.Message) (domain.MessageRef, error)
	MarkRead(ctx context.Context, reader domain.UserID, scope domain.ReadScope) (int, error)
}

// NotificationStore persists fallback notifications for offline recipients.
type NotificationStore interface {
	Create(ctx context.Context, n domain.Notification) (domain.NotificationRef, error)
}
