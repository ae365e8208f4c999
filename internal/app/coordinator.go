package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

// Session is the handle returned by Connect; the adapter keeps it for the
// lifetime of the transport connection.
type Session struct {
	Conn  core.ConnID
	User  domain.UserID
	Group domain.GroupID
}

// Coordinator is the transport-agnostic surface of the subsystem. It is
// constructed once per process and wires the registry, rooms, router,
// notifier, signaling relay and read-state tracker together.
type Coordinator struct {
	auth      core.Authenticator
	registry  *Registry
	rooms     *Rooms
	router    *MessageRouter
	readstate *ReadState
	signaling *Signaling
}

func NewCoordinator(
	auth core.Authenticator,
	registry *Registry,
	rooms *Rooms,
	router *MessageRouter,
	readstate *ReadState,
	signaling *Signaling,
) *Coordinator {
	return &Coordinator{
		auth:      auth,
		registry:  registry,
		rooms:     rooms,
		router:    router,
		readstate: readstate,
		signaling: signaling,
	}
}

// Connect verifies the credential, admits the connection and enrolls it in
// its rooms: the group room matching the membership captured by the
// authentication step (if any) and the user's own direct room. Enrollment
// happens once per connection, at admission time; membership is not
// re-queried per message.
func (c *Coordinator) Connect(credential string, conn core.Conn) (*Session, error) {
	id, err := c.auth.Verify(credential)
	if err != nil {
		return nil, err
	}
	cid := c.registry.Admit(id.User, conn)
	c.rooms.Join(cid, domain.DirectRoom(id.User))
	if id.Group != "" {
		c.rooms.Join(cid, domain.GroupRoom(id.Group))
	}
	log.Info().Str("module", "app.coordinator").Str("cid", string(cid)).Str("user", string(id.User)).Str("group", string(id.Group)).Msg("session connected")
	return &Session{Conn: cid, User: id.User, Group: id.Group}, nil
}

// Disconnect removes the connection from every room and from the registry.
// Safe to call more than once; the registry treats an unknown handle as a
// no-op.
func (c *Coordinator) Disconnect(s *Session) {
	if s == nil {
		return
	}
	c.rooms.LeaveAll(s.Conn)
	c.registry.Remove(s.Conn)
	log.Info().Str("module", "app.coordinator").Str("cid", string(s.Conn)).Str("user", string(s.User)).Msg("session disconnected")
}

func (c *Coordinator) SendMessage(ctx context.Context, s *Session, in domain.Intent) (domain.MessageRef, error) {
	return c.router.Dispatch(ctx, s.User, in)
}

func (c *Coordinator) MarkRead(ctx context.Context, s *Session, scope domain.ReadScope) (int, error) {
	return c.readstate.MarkRead(ctx, s.User, scope)
}

func (c *Coordinator) InitiateCall(s *Session, to domain.UserID, payload json.RawMessage) error {
	return c.signaling.Relay(s.User, to, SignalInvite, payload)
}

func (c *Coordinator) AcceptCall(s *Session, to domain.UserID, payload json.RawMessage) error {
	return c.signaling.Relay(s.User, to, SignalAccept, payload)
}

func (c *Coordinator) EndCall(s *Session, to domain.UserID) error {
	return c.signaling.Relay(s.User, to, SignalEnd, nil)
}
