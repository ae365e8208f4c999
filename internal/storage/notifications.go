package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/dkeye/courier/internal/domain"
)

// NotificationStore persists offline-fallback notifications under
// ntf:<recipient>:<seq>, so the surrounding system can fetch a user's pending
// notifications with one prefix scan. The coordinator itself only writes.
type NotificationStore struct {
	db *badger.DB
}

func NewNotificationStore(db *badger.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(ctx context.Context, n domain.Notification) (domain.NotificationRef, error) {
	key := fmt.Sprintf("ntf:%s:%s", esc(n.Recipient), seq(n.CreatedAt))
	n.Ref = domain.NotificationRef(key)
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return "", err
	}
	return n.Ref, nil
}

// PendingFor lists the notifications addressed to a user, oldest first.
func (s *NotificationStore) PendingFor(ctx context.Context, u domain.UserID) ([]domain.Notification, error) {
	prefix := []byte(fmt.Sprintf("ntf:%s:", esc(u)))
	var out []domain.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var n domain.Notification
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	return out, err
}
