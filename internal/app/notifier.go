package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

const previewLen = 120

// Notifier creates one durable notification per intended recipient who had
// zero live connections at dispatch time. A user connecting between
// persistence and this check may get both a live delivery and a
// notification; that at-least-once outcome is accepted, clients de-duplicate
// by message ref.
type Notifier struct {
	registry *Registry
	groups   core.GroupDirectory
	store    core.NotificationStore
}

func NewNotifier(registry *Registry, groups core.GroupDirectory, store core.NotificationStore) *Notifier {
	return &Notifier{registry: registry, groups: groups, store: store}
}

// NotifyOfflineRecipients is called after a successful persist. Failures here
// are logged, never propagated: the authoritative record is the persisted
// message.
func (n *Notifier) NotifyOfflineRecipients(ctx context.Context, sender domain.UserID, in domain.Intent, msg domain.Message) {
	if in.IsGroup() {
		members, err := n.groups.MembersOf(ctx, in.Group)
		if err != nil {
			log.Error().Str("module", "app.notifier").Str("group", string(in.Group)).Err(err).Msg("membership lookup failed")
			return
		}
		offline := lo.Filter(members, func(u domain.UserID, _ int) bool {
			return u != sender && !n.registry.IsOnline(u)
		})
		for _, u := range offline {
			n.create(ctx, u, sender, in.Group, msg)
		}
		return
	}

	if !n.registry.IsOnline(in.Recipient) {
		n.create(ctx, in.Recipient, sender, "", msg)
	}
}

func (n *Notifier) create(ctx context.Context, recipient, sender domain.UserID, group domain.GroupID, msg domain.Message) {
	// Truncate on rune boundaries so a multi-byte character is never split.
	preview := msg.Body
	if runes := []rune(preview); len(runes) > previewLen {
		preview = string(runes[:previewLen])
	}
	_, err := n.store.Create(ctx, domain.Notification{
		Recipient: recipient,
		Sender:    sender,
		Group:     group,
		Message:   msg.Ref,
		Preview:   preview,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Str("module", "app.notifier").Str("recipient", string(recipient)).Str("ref", string(msg.Ref)).Err(err).Msg("notification create failed")
		return
	}
	log.Debug().Str("module", "app.notifier").Str("recipient", string(recipient)).Str("ref", string(msg.Ref)).Msg("offline notification created")
}
