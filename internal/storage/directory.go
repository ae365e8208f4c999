package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/dkeye/courier/internal/domain"
)

var ErrUnknownUser = errors.New("unknown user")

type userRecord struct {
	Profile domain.Profile `json:"profile"`
	Group   domain.GroupID `json:"group,omitempty"`
}

// Directory is the membership and profile collaborator backed by the same
// Badger database. The surrounding system maintains it; the coordinator only
// reads through MembersOf and DisplayInfo.
type Directory struct {
	db *badger.DB
}

func NewDirectory(db *badger.DB) *Directory {
	return &Directory{db: db}
}

// PutUser upserts a user's profile and group membership, keeping the
// grp:<group>:<user> index in step with the usr:<user> record.
func (d *Directory) PutUser(ctx context.Context, u domain.UserID, p domain.Profile, g domain.GroupID) error {
	rec := userRecord{Profile: p, Group: g}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		userKey := []byte("usr:" + esc(u))
		// Drop the old index entry when the user changes group.
		if item, err := txn.Get(userKey); err == nil {
			var old userRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			}); err != nil {
				return err
			}
			if old.Group != "" && old.Group != g {
				if err := txn.Delete([]byte(fmt.Sprintf("grp:%s:%s", esc(old.Group), esc(u)))); err != nil {
					return err
				}
			}
		}
		if err := txn.Set(userKey, data); err != nil {
			return err
		}
		if g != "" {
			return txn.Set([]byte(fmt.Sprintf("grp:%s:%s", esc(g), esc(u))), nil)
		}
		return nil
	})
}

func (d *Directory) MembersOf(ctx context.Context, g domain.GroupID) ([]domain.UserID, error) {
	prefix := fmt.Sprintf("grp:%s:", esc(g))
	var out []domain.UserID
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			out = append(out, domain.UserID(unesc(key[len(prefix):])))
		}
		return nil
	})
	return out, err
}

func (d *Directory) DisplayInfo(ctx context.Context, u domain.UserID) (domain.Profile, error) {
	var rec userRecord
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("usr:" + esc(u)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Profile{}, fmt.Errorf("%w: %s", ErrUnknownUser, u)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return rec.Profile, nil
}
