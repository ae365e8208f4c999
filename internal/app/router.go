package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

// Delivery is the wire envelope pushed to live connections for a chat
// message. Sender display attributes are resolved at dispatch time, not
// stored with the message.
type Delivery struct {
	Type    string         `json:"type"` // always "message"
	Message domain.Message `json:"message"`
	Sender  domain.Profile `json:"sender"`
}

// MessageRouter decides whether an intent is a group broadcast or a private
// delivery, persists it, fans it out, and hands offline recipients to the
// notifier. Persistence success is the precondition for any delivery or
// notification.
type MessageRouter struct {
	registry *Registry
	rooms    *Rooms
	store    core.MessageStore
	profiles core.ProfileDirectory
	notifier *Notifier
}

func NewRouter(registry *Registry, rooms *Rooms, store core.MessageStore, profiles core.ProfileDirectory, notifier *Notifier) *MessageRouter {
	return &MessageRouter{
		registry: registry,
		rooms:    rooms,
		store:    store,
		profiles: profiles,
		notifier: notifier,
	}
}

// Dispatch validates, persists and delivers a message intent on behalf of
// sender, returning the persisted reference. Live delivery is best effort;
// a stale connection is logged and skipped, never surfaced to the sender.
func (mr *MessageRouter) Dispatch(ctx context.Context, sender domain.UserID, in domain.Intent) (domain.MessageRef, error) {
	if err := validateIntent(in); err != nil {
		return "", err
	}

	var senderInfo domain.Profile
	if info, err := mr.profiles.DisplayInfo(ctx, sender); err == nil {
		senderInfo = info
	} else {
		log.Warn().Str("module", "app.router").Str("user", string(sender)).Err(err).Msg("sender profile lookup failed")
	}

	if in.IsPrivate() {
		// The recipient must resolve before anything is persisted.
		if _, err := mr.profiles.DisplayInfo(ctx, in.Recipient); err != nil {
			return "", fmt.Errorf("%w: %s", core.ErrUnknownRecipient, in.Recipient)
		}
	}

	kind := in.Kind
	if kind == "" {
		kind = domain.KindText
	}
	msg := domain.Message{
		Sender:        sender,
		Group:         in.Group,
		Recipient:     in.Recipient,
		Body:          in.Body,
		AttachmentRef: in.AttachmentRef,
		Kind:          kind,
		SentAt:        time.Now().UTC(),
	}

	ref, err := mr.store.Save(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	msg.Ref = ref

	frame, err := json.Marshal(Delivery{Type: "message", Message: msg, Sender: senderInfo})
	if err != nil {
		// The message is durable; a marshal failure only skips the live push.
		log.Error().Str("module", "app.router").Str("ref", string(ref)).Err(err).Msg("delivery marshal failed")
		return ref, nil
	}

	var dropped []core.ConnID
	if in.IsGroup() {
		// Sender sees their own message echoed through the room, matching
		// chat-history expectations; no self-exclusion.
		res := mr.rooms.Broadcast(domain.GroupRoom(in.Group), frame, "")
		dropped = res.Dropped
	} else {
		res := mr.registry.SendTo(in.Recipient, frame)
		dropped = res.Dropped
		// Echo to the sender's own devices so every client of the sender
		// shows the outgoing message.
		echo := mr.registry.SendTo(sender, frame)
		dropped = append(dropped, echo.Dropped...)
	}
	// The message is already durable; tearing down stale connections is
	// cleanup, not an error path.
	for _, cid := range dropped {
		evictConn(mr.registry, mr.rooms, cid)
	}

	mr.notifier.NotifyOfflineRecipients(ctx, sender, in, msg)

	return ref, nil
}

func validateIntent(in domain.Intent) error {
	if in.IsGroup() == in.IsPrivate() {
		return fmt.Errorf("%w: exactly one of group or recipient must be set", core.ErrInvalidIntent)
	}
	if in.Body == "" && in.AttachmentRef == "" {
		return fmt.Errorf("%w: empty body and attachment", core.ErrInvalidIntent)
	}
	return nil
}
