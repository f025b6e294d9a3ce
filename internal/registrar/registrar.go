package registrar

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/tg-promo/promobot/internal/config"
	"github.com/tg-promo/promobot/internal/models"
	"github.com/tg-promo/promobot/internal/notify"
	"github.com/tg-promo/promobot/internal/storage"
	"gopkg.in/telebot.v4"
)

// Telegram is the slice of the bot API the registrar needs. *telebot.Bot
// satisfies it.
type Telegram interface {
	ChatByID(id int64) (*telebot.Chat, error)
	Len(chat *telebot.Chat) (int, error)
	InviteLink(chat *telebot.Chat) (string, error)
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Registrar turns bot-promoted-to-admin updates into registered entities and
// answers owner commands.
type Registrar struct {
	config  *config.Config
	store   *storage.Store
	bot     Telegram
	webhook *notify.Webhook
}

func New(cfg *config.Config, store *storage.Store, bot Telegram, webhook *notify.Webhook) *Registrar {
	return &Registrar{
		config:  cfg,
		store:   store,
		bot:     bot,
		webhook: webhook,
	}
}

// AdminPromotion is the event extracted from a my_chat_member update in which
// the bot was granted administrator rights.
type AdminPromotion struct {
	ChatID  int64
	Kind    models.Kind
	ActorID int64
}

// HandleChatMemberUpdate ingests my_chat_member updates. Only the bot being
// promoted to administrator in a channel or group triggers registration;
// everything else is ignored. Errors never escape to the poller.
func (r *Registrar) HandleChatMemberUpdate(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.BotHandleTimeout)
	defer cancel()

	uc := NewUpdateContext(ctx, c)

	upd := c.ChatMember()
	if upd == nil || upd.NewChatMember == nil || upd.Sender == nil {
		uc.L().Debug("ignoring chat member update without member or actor")
		return nil
	}
	if upd.NewChatMember.Role != telebot.Administrator {
		uc.L().Debugf("ignoring chat member update with status %q", upd.NewChatMember.Role)
		return nil
	}

	kind, ok := models.KindFromChatType(upd.Chat.Type)
	if !ok {
		uc.L().Debugf("ignoring admin promotion in chat of type %q", upd.Chat.Type)
		return nil
	}

	ev := AdminPromotion{
		ChatID:  upd.Chat.ID,
		Kind:    kind,
		ActorID: upd.Sender.ID,
	}
	if err := r.Register(uc, uc.L(), ev); err != nil {
		uc.L().Errorf("failed to register %s %d: %v", ev.Kind, ev.ChatID, err)
		r.reply(uc.L(), ev.ChatID,
			"❌ Failed to register the channel/group automatically.\n"+
				"Please check that the bot has all required permissions.")
	}
	return nil
}

// Register runs the registration state machine for one admin promotion.
// Validation rejections (ban, minimum members, quota) are answered in chat
// and return nil; only collaborator failures surface as errors, and they
// happen before any entity mutation.
func (r *Registrar) Register(ctx context.Context, log *logrus.Entry, ev AdminPromotion) error {
	user := r.store.GetOrCreateUser(ctx, strconv.FormatInt(ev.ActorID, 10))

	if user.IsBanned {
		log.Infof("rejecting registration from banned user %s", user.ID)
		r.reply(log, ev.ChatID, "❌ Banned users cannot register channels or groups.")
		return nil
	}

	chat, err := r.bot.ChatByID(ev.ChatID)
	if err != nil {
		return fmt.Errorf("getting chat info: %w", err)
	}
	memberCount, err := r.bot.Len(chat)
	if err != nil {
		return fmt.Errorf("getting member count: %w", err)
	}

	if memberCount < r.config.MinMembers {
		log.Infof("rejecting %s %d with %d members", ev.Kind, ev.ChatID, memberCount)
		r.reply(log, ev.ChatID, fmt.Sprintf(
			"❌ Not registered: at least %d members required.\nCurrent members: %d",
			r.config.MinMembers,
			memberCount,
		))
		return nil
	}

	inviteLink, err := r.bot.InviteLink(chat)
	if err != nil {
		return fmt.Errorf("exporting invite link: %w", err)
	}

	entity := models.Entity{
		ID:          strconv.FormatInt(ev.ChatID, 10),
		Title:       chat.Title,
		MemberCount: memberCount,
		Category:    models.ClassifyMembers(memberCount),
		OwnerID:     user.ID,
		Username:    chat.Username,
		InviteLink:  inviteLink,
	}

	created, err := r.store.RegisterEntity(ctx, ev.Kind, entity)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		log.Infof("user %s is at the %s quota", user.ID, ev.Kind)
		r.reply(log, ev.ChatID, fmt.Sprintf(
			"❌ Maximum of %d registered %ss reached.", r.config.MaxPerOwner, ev.Kind))
		return nil
	}
	if err != nil {
		return fmt.Errorf("registering entity: %w", err)
	}

	log.Infof(
		"registered %s %s (%q, %d members, tier %s, created=%v)",
		ev.Kind, entity.ID, entity.Title, entity.MemberCount, entity.Category, created,
	)

	r.reply(log, ev.ChatID, fmt.Sprintf(
		"✅ %s registered automatically!\n\n"+
			"📌 Title: %s\n"+
			"👥 Members: %d\n"+
			"📊 Category: %s\n"+
			"🔗 Invite link: %s\n\n"+
			"ℹ️ Awaiting approval before promotion starts.",
		kindLabel(ev.Kind),
		entity.Title,
		entity.MemberCount,
		entity.Category,
		entity.InviteLink,
	))

	if created && r.webhook != nil {
		if err := r.webhook.EntityPending(ctx, ev.Kind, entity); err != nil {
			log.Warnf("failed to notify pending webhook: %v", err)
		}
	}

	return nil
}

// reply sends a notice to the chat, logging instead of failing when the send
// itself errors.
func (r *Registrar) reply(log *logrus.Entry, chatID int64, text string) {
	if _, err := r.bot.Send(telebot.ChatID(chatID), text); err != nil {
		log.Warnf("failed to send notice to chat %d: %v", chatID, err)
	}
}

func kindLabel(kind models.Kind) string {
	if kind == models.KindChannel {
		return "Channel"
	}
	return "Group"
}
