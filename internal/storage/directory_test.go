package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/courier/internal/domain"
)

func TestDirectory_PutUser_And_Lookup(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(openTestDB(t))
	ctx := context.Background()

	req.NoError(d.PutUser(ctx, "a", domain.Profile{Name: "Alice", AvatarRef: "av/a.png"}, "G"))
	req.NoError(d.PutUser(ctx, "b", domain.Profile{Name: "Bob"}, "G"))
	req.NoError(d.PutUser(ctx, "loner", domain.Profile{Name: "Loner"}, ""))

	members, err := d.MembersOf(ctx, "G")
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"a", "b"}, members)

	info, err := d.DisplayInfo(ctx, "a")
	req.NoError(err)
	req.Equal("Alice", info.Name)
	req.Equal("av/a.png", info.AvatarRef)
}

func TestDirectory_Unknown_User(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(openTestDB(t))

	_, err := d.DisplayInfo(context.Background(), "ghost")
	req.ErrorIs(err, ErrUnknownUser)
}

func TestDirectory_Group_Change_Updates_Index(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(openTestDB(t))
	ctx := context.Background()

	req.NoError(d.PutUser(ctx, "a", domain.Profile{Name: "Alice"}, "G1"))
	req.NoError(d.PutUser(ctx, "a", domain.Profile{Name: "Alice"}, "G2"))

	old, err := d.MembersOf(ctx, "G1")
	req.NoError(err)
	req.Empty(old)

	current, err := d.MembersOf(ctx, "G2")
	req.NoError(err)
	req.Equal([]domain.UserID{"a"}, current)
}

func TestDirectory_Colon_IDs_Do_Not_Bleed_Across_Groups(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(openTestDB(t))
	ctx := context.Background()

	req.NoError(d.PutUser(ctx, "m:1", domain.Profile{Name: "Mallory"}, "G"))
	req.NoError(d.PutUser(ctx, "n", domain.Profile{Name: "Nina"}, "G:z"))

	members, err := d.MembersOf(ctx, "G")
	req.NoError(err)
	req.Equal([]domain.UserID{"m:1"}, members)

	other, err := d.MembersOf(ctx, "G:z")
	req.NoError(err)
	req.Equal([]domain.UserID{"n"}, other)
}
