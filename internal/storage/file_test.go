package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tg-promo/promobot/internal/models"
)

func TestFileBackendLoadMissingFile(t *testing.T) {
	backend, err := openFile(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	snap, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Channels)
	assert.Empty(t, snap.Groups)
	assert.Empty(t, snap.Users)
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	backend, err := openFile(path)
	require.NoError(t, err)

	snap := &Snapshot{
		Channels: []*models.Entity{
			{
				ID:          "-1001",
				Title:       "news",
				MemberCount: 1200,
				Category:    models.TierMedium,
				OwnerID:     "7",
				Username:    "newschan",
				IsApproved:  true,
				InviteLink:  "https://t.me/+abc",
			},
		},
		Groups: []*models.Entity{
			{
				ID:          "-2001",
				Title:       "chatters",
				MemberCount: 300,
				Category:    models.TierSmall,
				OwnerID:     "7",
				InviteLink:  "https://t.me/+def",
			},
		},
		Users: []*models.User{
			{ID: "7", ChannelCount: 1, GroupCount: 1},
			{ID: "8", IsBanned: true},
		},
	}
	require.NoError(t, backend.Save(ctx, snap))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, loaded); diff != "" {
		t.Errorf("snapshot mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestFileBackendSaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	backend, err := openFile(path)
	require.NoError(t, err)

	first := emptySnapshot()
	first.Users = append(first.Users, models.NewUser("7"))
	require.NoError(t, backend.Save(ctx, first))

	second := emptySnapshot()
	second.Users = append(second.Users, models.NewUser("8"))
	require.NoError(t, backend.Save(ctx, second))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Users, 1)
	assert.Equal(t, "8", loaded.Users[0].ID)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not linger")
}

func TestStoreRoundTripThroughFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	backend, err := openFile(path)
	require.NoError(t, err)

	store := New(backend, 3)
	require.NoError(t, store.Load(ctx))
	_, err = store.RegisterEntity(ctx, models.KindChannel, testEntity("100", "7", 1200))
	require.NoError(t, err)
	store.SetApproved(ctx, "100", true)
	store.SetBanned(ctx, "7", true)

	reloaded := New(backend, 3)
	require.NoError(t, reloaded.Load(ctx))
	if diff := cmp.Diff(store.State(), reloaded.State()); diff != "" {
		t.Errorf("store state mismatch after reload (-want +got):\n%s", diff)
	}
}
