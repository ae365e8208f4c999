package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

func TestRegistry_Admit_Multiple_Connections_Per_User(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	user := domain.UserID("alice")

	// Given no connections
	req.False(reg.IsOnline(user))

	// When the same user connects from two devices
	cid1 := reg.Admit(user, &fakeConn{})
	cid2 := reg.Admit(user, &fakeConn{})

	// Then both are live and distinct
	req.NotEqual(cid1, cid2)
	req.True(reg.IsOnline(user))
	req.ElementsMatch([]core.ConnID{cid1, cid2}, reg.ConnectionsFor(user))
}

func TestRegistry_Remove_Last_Connection_Goes_Offline(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	user := domain.UserID("alice")
	cid1 := reg.Admit(user, &fakeConn{})
	cid2 := reg.Admit(user, &fakeConn{})

	reg.Remove(cid1)
	req.True(reg.IsOnline(user))

	reg.Remove(cid2)
	req.False(reg.IsOnline(user))
	req.Empty(reg.ConnectionsFor(user))
}

func TestRegistry_Remove_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	user := domain.UserID("alice")
	cid := reg.Admit(user, &fakeConn{})

	// Removing twice must not panic or disturb other state.
	reg.Remove("no-such-conn")
	reg.Remove(cid)
	reg.Remove(cid)

	req.False(reg.IsOnline(user))
}

func TestRegistry_SendTo_Fans_Out_And_Reports_Stale(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	user := domain.UserID("dana")
	healthy := &fakeConn{}
	stale := &fakeConn{fail: true}
	reg.Admit(user, healthy)
	staleID := reg.Admit(user, stale)

	res := reg.SendTo(user, core.Frame(`{"type":"message"}`))

	req.Equal(1, res.Sent)
	req.Equal([]core.ConnID{staleID}, res.Dropped)
	req.Len(healthy.received(), 1)
}

func TestRegistry_Concurrent_Admit_Remove(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	user := domain.UserID("swarm")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cid := reg.Admit(user, &fakeConn{})
			reg.SendTo(user, core.Frame("x"))
			reg.Remove(cid)
		}()
	}
	wg.Wait()

	req.False(reg.IsOnline(user))
}
