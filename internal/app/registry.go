package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

type connEntry struct {
	User domain.UserID
	Conn core.Conn
}

// Registry is the bidirectional mapping between user identities and their
// live connections. It is shared by every per-connection goroutine, so all
// access goes through the RWMutex; callers snapshot under the lock and send
// outside it.
type Registry struct {
	mu     sync.RWMutex
	conns  map[core.ConnID]*connEntry
	byUser map[domain.UserID]map[core.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[core.ConnID]*connEntry),
		byUser: make(map[domain.UserID]map[core.ConnID]struct{}),
	}
}

// Admit registers a new live connection for a user and returns its minted ID.
// The user is considered online immediately. Multiple connections per user
// are expected (multi-device), so there is no duplicate guard.
func (r *Registry) Admit(user domain.UserID, conn core.Conn) core.ConnID {
	cid := core.ConnID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{User: user, Conn: conn}
	set, ok := r.byUser[user]
	if !ok {
		set = make(map[core.ConnID]struct{})
		r.byUser[user] = set
	}
	set[cid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(user)).Msg("connection admitted")
	return cid
}

// Remove unregisters a connection. Removing an unknown ID is a no-op so that
// disconnect races stay harmless. When the last connection of a user goes,
// the user transitions to offline.
func (r *Registry) Remove(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok {
		return
	}
	delete(r.conns, cid)
	if set, ok := r.byUser[entry.User]; ok {
		delete(set, cid)
		if len(set) == 0 {
			delete(r.byUser, entry.User)
		}
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(entry.User)).Msg("connection removed")
}

// IsOnline reports whether at least one live connection exists for the user.
func (r *Registry) IsOnline(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user]) > 0
}

// ConnectionsFor returns the IDs of every live connection of the user, for
// direct-delivery fan-out.
func (r *Registry) ConnectionsFor(user domain.UserID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[user]
	out := make([]core.ConnID, 0, len(set))
	for cid := range set {
		out = append(out, cid)
	}
	return out
}

// Resolve returns the transport endpoint behind a connection ID.
func (r *Registry) Resolve(cid core.ConnID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[cid]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// UserOf returns the owner of a connection.
func (r *Registry) UserOf(cid core.ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[cid]
	if !ok {
		return "", false
	}
	return entry.User, true
}

// SendTo pushes a frame to every live connection of the user. The snapshot is
// taken under the read lock; sends happen outside it. Failed connections are
// reported, not evicted here.
func (r *Registry) SendTo(user domain.UserID, f core.Frame) core.DeliveryResult {
	r.mu.RLock()
	type target struct {
		cid  core.ConnID
		conn core.Conn
	}
	targets := make([]target, 0, len(r.byUser[user]))
	for cid := range r.byUser[user] {
		if entry, ok := r.conns[cid]; ok {
			targets = append(targets, target{cid: cid, conn: entry.Conn})
		}
	}
	r.mu.RUnlock()

	res := core.DeliveryResult{}
	for _, t := range targets {
		if err := t.conn.TrySend(f); err != nil {
			log.Warn().Str("module", "app.registry").Str("cid", string(t.cid)).Err(err).Msg("send failed, marking stale")
			res.Dropped = append(res.Dropped, t.cid)
			continue
		}
		res.Sent++
	}
	return res
}
