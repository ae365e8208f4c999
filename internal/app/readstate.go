package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

// ReadState marks persisted messages as read in bulk. The update is
// idempotent: a repeated call with the same scope affects zero rows.
type ReadState struct {
	store core.MessageStore
}

func NewReadState(store core.MessageStore) *ReadState {
	return &ReadState{store: store}
}

// MarkRead applies one of two scopes: every unread message in scope.Group not
// authored by the reader, or every unread private message from scope.Sender
// to the reader. Exactly one of the two must be set.
func (rs *ReadState) MarkRead(ctx context.Context, reader domain.UserID, scope domain.ReadScope) (int, error) {
	if (scope.Group == "") == (scope.Sender == "") {
		return 0, fmt.Errorf("%w: exactly one of group or sender scope must be set", core.ErrInvalidIntent)
	}
	count, err := rs.store.MarkRead(ctx, reader, scope)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	log.Debug().Str("module", "app.readstate").Str("reader", string(reader)).Int("count", count).Msg("marked read")
	return count, nil
}
