package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

func TestReadState_Rejects_Ambiguous_Scope(t *testing.T) {
	req := require.New(t)
	rs := NewReadState(&fakeMessageStore{})

	_, err := rs.MarkRead(context.Background(), "alice", domain.ReadScope{})
	req.ErrorIs(err, core.ErrInvalidIntent)

	_, err = rs.MarkRead(context.Background(), "alice", domain.ReadScope{Group: "g", Sender: "bob"})
	req.ErrorIs(err, core.ErrInvalidIntent)
}

func TestReadState_Delegates_And_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	store := &fakeMessageStore{count: 3}
	rs := NewReadState(store)
	scope := domain.ReadScope{Group: "g"}

	count, err := rs.MarkRead(context.Background(), "alice", scope)
	req.NoError(err)
	req.Equal(3, count)

	// Second identical call finds nothing left to mark.
	count, err = rs.MarkRead(context.Background(), "alice", scope)
	req.NoError(err)
	req.Zero(count)
	req.Equal([]domain.ReadScope{scope, scope}, store.marked)
}
