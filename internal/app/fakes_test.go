package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

// fakeConn records every frame pushed to it; flipping fail simulates a stale
// socket whose send always errors.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

type fakeMessageStore struct {
	mu       sync.Mutex
	saved    []domain.Message
	failSave bool
	marked   []domain.ReadScope
	count    int
}

func (s *fakeMessageStore) Save(ctx context.Context, m domain.Message) (domain.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return "", errors.New("store unavailable")
	}
	ref := domain.MessageRef(fmt.Sprintf("msg-%d", len(s.saved)+1))
	m.Ref = ref
	s.saved = append(s.saved, m)
	return ref, nil
}

func (s *fakeMessageStore) MarkRead(ctx context.Context, reader domain.UserID, scope domain.ReadScope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, scope)
	c := s.count
	s.count = 0 // idempotent: a second identical call affects nothing
	return c, nil
}

type fakeNotificationStore struct {
	mu      sync.Mutex
	created []domain.Notification
}

func (s *fakeNotificationStore) Create(ctx context.Context, n domain.Notification) (domain.NotificationRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.Ref = domain.NotificationRef(fmt.Sprintf("ntf-%d", len(s.created)+1))
	s.created = append(s.created, n)
	return n.Ref, nil
}

func (s *fakeNotificationStore) all() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.created))
	copy(out, s.created)
	return out
}

type fakeGroups map[domain.GroupID][]domain.UserID

func (g fakeGroups) MembersOf(ctx context.Context, id domain.GroupID) ([]domain.UserID, error) {
	return g[id], nil
}

type fakeProfiles map[domain.UserID]domain.Profile

func (p fakeProfiles) DisplayInfo(ctx context.Context, u domain.UserID) (domain.Profile, error) {
	info, ok := p[u]
	if !ok {
		return domain.Profile{}, fmt.Errorf("no such user: %s", u)
	}
	return info, nil
}

type fakeAuth map[string]domain.Identity

func (a fakeAuth) Verify(credential string) (domain.Identity, error) {
	id, ok := a[credential]
	if !ok {
		return domain.Identity{}, errors.New("bad credential")
	}
	return id, nil
}
