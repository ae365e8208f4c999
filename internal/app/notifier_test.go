package app

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/courier/internal/domain"
)

func TestNotifier_Group_One_Notification_Per_Offline_User(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ntfs := &fakeNotificationStore{}
	groups := fakeGroups{"G": {"sender", "online", "offline1", "offline2"}}
	n := NewNotifier(reg, groups, ntfs)

	// online has two devices; notifications are per user, not per connection.
	reg.Admit("online", &fakeConn{})
	reg.Admit("online", &fakeConn{})

	msg := domain.Message{Ref: "m1", Sender: "sender", Group: "G", Body: "hi"}
	n.NotifyOfflineRecipients(context.Background(), "sender", domain.Intent{Group: "G", Body: "hi"}, msg)

	created := ntfs.all()
	req.Len(created, 2)
	recipients := []domain.UserID{created[0].Recipient, created[1].Recipient}
	req.ElementsMatch([]domain.UserID{"offline1", "offline2"}, recipients)
}

func TestNotifier_Group_Sender_Never_Notified(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ntfs := &fakeNotificationStore{}
	groups := fakeGroups{"G": {"sender"}}
	n := NewNotifier(reg, groups, ntfs)

	// Sender is offline too (sent, then dropped), but must not self-notify.
	msg := domain.Message{Ref: "m1", Sender: "sender", Group: "G"}
	n.NotifyOfflineRecipients(context.Background(), "sender", domain.Intent{Group: "G", Body: "x"}, msg)

	req.Empty(ntfs.all())
}

func TestNotifier_Private_Online_Recipient_No_Notification(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ntfs := &fakeNotificationStore{}
	n := NewNotifier(reg, fakeGroups{}, ntfs)

	reg.Admit("d", &fakeConn{})
	msg := domain.Message{Ref: "m1", Sender: "c", Recipient: "d"}
	n.NotifyOfflineRecipients(context.Background(), "c", domain.Intent{Recipient: "d", Body: "x"}, msg)

	req.Empty(ntfs.all())
}

func TestNotifier_Preview_Is_Truncated(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ntfs := &fakeNotificationStore{}
	n := NewNotifier(reg, fakeGroups{}, ntfs)

	long := strings.Repeat("a", 500)
	msg := domain.Message{Ref: "m1", Sender: "c", Recipient: "d", Body: long}
	n.NotifyOfflineRecipients(context.Background(), "c", domain.Intent{Recipient: "d", Body: long}, msg)

	created := ntfs.all()
	req.Len(created, 1)
	req.Len(created[0].Preview, previewLen)
}

func TestNotifier_Preview_Truncation_Keeps_Runes_Whole(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ntfs := &fakeNotificationStore{}
	n := NewNotifier(reg, fakeGroups{}, ntfs)

	long := strings.Repeat("héllo ", 100)
	msg := domain.Message{Ref: "m1", Sender: "c", Recipient: "d", Body: long}
	n.NotifyOfflineRecipients(context.Background(), "c", domain.Intent{Recipient: "d", Body: long}, msg)

	created := ntfs.all()
	req.Len(created, 1)
	req.True(utf8.ValidString(created[0].Preview))
	req.Equal(previewLen, utf8.RuneCountInString(created[0].Preview))
}
