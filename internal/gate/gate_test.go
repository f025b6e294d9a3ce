package gate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tg-promo/promobot/internal/models"
	"github.com/tg-promo/promobot/internal/storage"
	"gopkg.in/telebot.v4"
)

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(_ telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.sent = append(f.sent, fmt.Sprint(what))
	return &telebot.Message{}, nil
}

func newTestGate(t *testing.T) (*Gate, *storage.Store, *fakeSender) {
	t.Helper()
	store := storage.New(storage.NewMemory(), 3)
	require.NoError(t, store.Load(context.Background()))
	bot := &fakeSender{}
	return New(store, bot), store, bot
}

func seedChannel(t *testing.T, store *storage.Store, id string) {
	t.Helper()
	_, err := store.RegisterEntity(context.Background(), models.KindChannel, models.Entity{
		ID:          id,
		Title:       "news",
		MemberCount: 1200,
		Category:    models.TierMedium,
		OwnerID:     "7",
		InviteLink:  "https://t.me/+abc",
	})
	require.NoError(t, err)
}

func TestApproveAndDisapprove(t *testing.T) {
	ctx := context.Background()
	g, store, bot := newTestGate(t)
	seedChannel(t, store, "-1001")

	require.True(t, g.Approve(ctx, "-1001"))
	entity, _, _ := store.FindEntity("-1001")
	assert.True(t, entity.IsApproved)
	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0], "approved")

	require.True(t, g.Disapprove(ctx, "-1001"))
	entity, _, _ = store.FindEntity("-1001")
	assert.False(t, entity.IsApproved)
	require.Len(t, bot.sent, 2)
	assert.Contains(t, bot.sent[1], "disapproved")
}

func TestApproveUnknownIDIsSilentNoop(t *testing.T) {
	g, _, bot := newTestGate(t)

	assert.False(t, g.Approve(context.Background(), "nope"))
	assert.False(t, g.Disapprove(context.Background(), "nope"))
	assert.Empty(t, bot.sent)
}

func TestBanAndUnban(t *testing.T) {
	ctx := context.Background()
	g, store, _ := newTestGate(t)
	seedChannel(t, store, "-1001")

	require.True(t, g.Ban(ctx, "7"))
	user, _ := store.FindUser("7")
	assert.True(t, user.IsBanned)

	// the ban leaves registered entities alone
	entity, _, ok := store.FindEntity("-1001")
	require.True(t, ok)
	assert.Equal(t, "7", entity.OwnerID)

	require.True(t, g.Unban(ctx, "7"))
	user, _ = store.FindUser("7")
	assert.False(t, user.IsBanned)

	assert.False(t, g.Ban(ctx, "unknown"))
}
