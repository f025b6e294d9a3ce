package registrar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tg-promo/promobot/internal/config"
	"github.com/tg-promo/promobot/internal/models"
	"github.com/tg-promo/promobot/internal/storage"
	"gopkg.in/telebot.v4"
)

type fakeTelegram struct {
	title       string
	username    string
	memberCount int
	inviteLink  string

	chatErr error
	lenErr  error
	linkErr error

	sent []string
}

func (f *fakeTelegram) ChatByID(id int64) (*telebot.Chat, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &telebot.Chat{ID: id, Title: f.title, Username: f.username}, nil
}

func (f *fakeTelegram) Len(*telebot.Chat) (int, error) {
	if f.lenErr != nil {
		return 0, f.lenErr
	}
	return f.memberCount, nil
}

func (f *fakeTelegram) InviteLink(*telebot.Chat) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return f.inviteLink, nil
}

func (f *fakeTelegram) Send(_ telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.sent = append(f.sent, fmt.Sprint(what))
	return &telebot.Message{}, nil
}

func newTestRegistrar(t *testing.T, bot Telegram) (*Registrar, *storage.Store) {
	t.Helper()
	store := storage.New(storage.NewMemory(), 3)
	require.NoError(t, store.Load(context.Background()))

	cfg := &config.Config{
		MinMembers:  100,
		MaxPerOwner: 3,
	}
	return New(cfg, store, bot, nil), store
}

func testLog() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

func promotion(chatID int64, kind models.Kind, actor int64) AdminPromotion {
	return AdminPromotion{ChatID: chatID, Kind: kind, ActorID: actor}
}

func TestRegisterCreatesPendingEntity(t *testing.T) {
	bot := &fakeTelegram{title: "news", username: "newschan", memberCount: 1200, inviteLink: "https://t.me/+abc"}
	reg, store := newTestRegistrar(t, bot)

	err := reg.Register(context.Background(), testLog(), promotion(-1001, models.KindChannel, 7))
	require.NoError(t, err)

	entity, kind, ok := store.FindEntity("-1001")
	require.True(t, ok)
	assert.Equal(t, models.KindChannel, kind)
	assert.Equal(t, "news", entity.Title)
	assert.Equal(t, 1200, entity.MemberCount)
	assert.Equal(t, models.TierMedium, entity.Category)
	assert.Equal(t, "7", entity.OwnerID)
	assert.Equal(t, "https://t.me/+abc", entity.InviteLink)
	assert.False(t, entity.IsApproved)

	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0], "registered automatically")
	assert.Contains(t, bot.sent[0], "1000-5000")
	assert.Contains(t, bot.sent[0], "Awaiting approval")
}

func TestRegisterRejectsBannedUser(t *testing.T) {
	bot := &fakeTelegram{title: "news", memberCount: 1200, inviteLink: "https://t.me/+abc"}
	reg, store := newTestRegistrar(t, bot)

	store.GetOrCreateUser(context.Background(), "7")
	store.SetBanned(context.Background(), "7", true)

	err := reg.Register(context.Background(), testLog(), promotion(-1001, models.KindChannel, 7))
	require.NoError(t, err)

	_, _, ok := store.FindEntity("-1001")
	assert.False(t, ok)
	user, _ := store.FindUser("7")
	assert.Equal(t, 0, user.ChannelCount)

	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0], "Banned users")
}

func TestRegisterRejectsBelowMinimum(t *testing.T) {
	bot := &fakeTelegram{title: "tiny", memberCount: 42, inviteLink: "https://t.me/+abc"}
	reg, store := newTestRegistrar(t, bot)

	err := reg.Register(context.Background(), testLog(), promotion(-1001, models.KindGroup, 7))
	require.NoError(t, err)

	_, _, ok := store.FindEntity("-1001")
	assert.False(t, ok)

	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0], "at least 100 members")
	assert.Contains(t, bot.sent[0], "Current members: 42")
}

func TestRegisterRejectsFourthChannel(t *testing.T) {
	bot := &fakeTelegram{title: "news", memberCount: 500, inviteLink: "https://t.me/+abc"}
	reg, store := newTestRegistrar(t, bot)

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Register(context.Background(), testLog(), promotion(int64(-1000-i), models.KindChannel, 7)))
	}
	bot.sent = nil

	err := reg.Register(context.Background(), testLog(), promotion(-2000, models.KindChannel, 7))
	require.NoError(t, err)

	_, _, ok := store.FindEntity("-2000")
	assert.False(t, ok)
	user, _ := store.FindUser("7")
	assert.Equal(t, 3, user.ChannelCount)

	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0], "Maximum of 3")
}

func TestRegisterOverwriteSkipsQuotaAndKeepsApproval(t *testing.T) {
	bot := &fakeTelegram{title: "news", memberCount: 500, inviteLink: "https://t.me/+abc"}
	reg, store := newTestRegistrar(t, bot)

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Register(context.Background(), testLog(), promotion(int64(-1000-i), models.KindChannel, 7)))
	}
	store.SetApproved(context.Background(), "-1000", true)

	// re-promotion on a registered chat overwrites even at quota
	bot.title = "news v2"
	bot.memberCount = 7000
	require.NoError(t, reg.Register(context.Background(), testLog(), promotion(-1000, models.KindChannel, 7)))

	entity, _, ok := store.FindEntity("-1000")
	require.True(t, ok)
	assert.Equal(t, "news v2", entity.Title)
	assert.Equal(t, models.TierLarge, entity.Category)
	assert.True(t, entity.IsApproved)

	user, _ := store.FindUser("7")
	assert.Equal(t, 3, user.ChannelCount)
}

func TestRegisterCollaboratorFailureLeavesStateUnchanged(t *testing.T) {
	for name, bot := range map[string]*fakeTelegram{
		"chat info":    {chatErr: errors.New("chat not found"), memberCount: 500},
		"member count": {lenErr: errors.New("not enough rights"), memberCount: 500},
		"invite link":  {linkErr: errors.New("not enough rights"), memberCount: 500},
	} {
		t.Run(name, func(t *testing.T) {
			reg, store := newTestRegistrar(t, bot)

			err := reg.Register(context.Background(), testLog(), promotion(-1001, models.KindChannel, 7))
			require.Error(t, err)

			_, _, ok := store.FindEntity("-1001")
			assert.False(t, ok)
			user, ok := store.FindUser("7")
			require.True(t, ok)
			assert.Equal(t, 0, user.ChannelCount)
		})
	}
}

func TestRegisterKindsStayIndependent(t *testing.T) {
	bot := &fakeTelegram{title: "combo", memberCount: 500, inviteLink: "https://t.me/+abc"}
	reg, store := newTestRegistrar(t, bot)

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Register(context.Background(), testLog(), promotion(int64(-1000-i), models.KindChannel, 7)))
	}

	// channel quota exhausted, groups still register
	require.NoError(t, reg.Register(context.Background(), testLog(), promotion(-3000, models.KindGroup, 7)))

	_, kind, ok := store.FindEntity("-3000")
	require.True(t, ok)
	assert.Equal(t, models.KindGroup, kind)
	user, _ := store.FindUser("7")
	assert.Equal(t, 1, user.GroupCount)
}
