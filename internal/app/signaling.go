package app

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

type SignalKind string

const (
	SignalInvite SignalKind = "call_invite"
	SignalAccept SignalKind = "call_accept"
	SignalEnd    SignalKind = "call_end"
)

// SignalDelivery is the wire envelope for relayed call-setup payloads. The
// payload crosses the relay verbatim.
type SignalDelivery struct {
	Type    SignalKind      `json:"type"`
	From    domain.UserID   `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Signaling is a stateless pass-through between two peers. No persistence,
// no notification: a missed call invitation is not retried.
type Signaling struct {
	registry *Registry
	rooms    *Rooms
}

func NewSignaling(registry *Registry, rooms *Rooms) *Signaling {
	return &Signaling{registry: registry, rooms: rooms}
}

// Relay forwards the payload to every live connection of the target. When
// nothing was actually delivered — the target has no connections, or every
// one of them proved stale — it returns ErrPeerOffline so the caller can
// present "user is offline" instead of acking a call nobody received. Stale
// connections found along the way are evicted like on the message path.
func (s *Signaling) Relay(from, to domain.UserID, kind SignalKind, payload json.RawMessage) error {
	frame, err := json.Marshal(SignalDelivery{Type: kind, From: from, Payload: payload})
	if err != nil {
		return err
	}
	res := s.registry.SendTo(to, frame)
	for _, cid := range res.Dropped {
		evictConn(s.registry, s.rooms, cid)
	}
	if res.Sent == 0 {
		return fmt.Errorf("%w: %s", core.ErrPeerOffline, to)
	}
	log.Debug().Str("module", "app.signaling").Str("from", string(from)).Str("to", string(to)).Str("kind", string(kind)).Int("sent", res.Sent).Msg("signal relayed")
	return nil
}
