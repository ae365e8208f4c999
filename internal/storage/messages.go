// Package storage holds the BadgerDB-backed implementations of the stores
// and directories the coordinator consumes. Keys are prefix-scannable so the
// bulk read-state update and membership lookups are single iterations.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dkeye/courier/internal/domain"
)

// Key layout:
//
//	msg:g:<group>:<seq>              group message
//	msg:p:<recipient>:<sender>:<seq> private message
//
// The ref of a message is its key, so lookups need no secondary index, and
// the two MarkRead scopes are exact prefix scans. ID segments are escaped so
// an ID containing the delimiter cannot bleed into a neighboring scope.
type MessageStore struct {
	db *badger.DB
}

func NewMessageStore(db *badger.DB) *MessageStore {
	return &MessageStore{db: db}
}

// esc makes an ID safe to embed in a colon-delimited key; ":" becomes "%3A".
func esc[T ~string](id T) string {
	return url.QueryEscape(string(id))
}

func unesc(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		// Keys are only ever written escaped; treat anything else as opaque.
		return s
	}
	return out
}

func seq(t time.Time) string {
	return fmt.Sprintf("%020d:%s", t.UnixNano(), uuid.NewString()[:8])
}

func messageKey(m domain.Message) string {
	if m.Group != "" {
		return fmt.Sprintf("msg:g:%s:%s", esc(m.Group), seq(m.SentAt))
	}
	return fmt.Sprintf("msg:p:%s:%s:%s", esc(m.Recipient), esc(m.Sender), seq(m.SentAt))
}

func (s *MessageStore) Save(ctx context.Context, m domain.Message) (domain.MessageRef, error) {
	key := messageKey(m)
	m.Ref = domain.MessageRef(key)
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return "", err
	}
	return m.Ref, nil
}

// Get resolves a ref back to its record.
func (s *MessageStore) Get(ctx context.Context, ref domain.MessageRef) (domain.Message, error) {
	var m domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ref))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, err
}

// MarkRead flips the read flag on every unread message the scope selects and
// returns how many records changed. Re-running the same scope is a no-op.
func (s *MessageStore) MarkRead(ctx context.Context, reader domain.UserID, scope domain.ReadScope) (int, error) {
	var prefix string
	skipOwn := false
	if scope.Group != "" {
		prefix = fmt.Sprintf("msg:g:%s:", esc(scope.Group))
		skipOwn = true
	} else {
		prefix = fmt.Sprintf("msg:p:%s:%s:", esc(reader), esc(scope.Sender))
	}

	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var m domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			if m.Read {
				continue
			}
			if skipOwn && m.Sender == reader {
				continue
			}
			m.Read = true
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
