// Package gate owns the manual approval transitions: entities enter the
// broadcast rotation only after an operator approves them here.
package gate

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tg-promo/promobot/internal/models"
	"github.com/tg-promo/promobot/internal/storage"
	"gopkg.in/telebot.v4"
)

// Telegram is the slice of the bot API the gate needs. *telebot.Bot
// satisfies it.
type Telegram interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Gate struct {
	store *storage.Store
	bot   Telegram
	log   *logrus.Entry
}

func New(store *storage.Store, bot Telegram) *Gate {
	return &Gate{
		store: store,
		bot:   bot,
		log:   logrus.WithField("component", "gate"),
	}
}

// Approve flags the entity for broadcasting and notifies its chat. An
// unknown id is a silent no-op.
func (g *Gate) Approve(ctx context.Context, id string) bool {
	entity, kind, ok := g.store.SetApproved(ctx, id, true)
	if !ok {
		g.log.Debugf("approve: no entity with id %s", id)
		return false
	}

	g.log.Infof("approved %s %s (%q)", kind, entity.ID, entity.Title)
	g.notify(entity, "✅ "+label(kind)+" approved!\nPromotions start with the next cycle.")
	return true
}

// Disapprove removes the entity from the broadcast rotation and notifies its
// chat. An unknown id is a silent no-op.
func (g *Gate) Disapprove(ctx context.Context, id string) bool {
	entity, kind, ok := g.store.SetApproved(ctx, id, false)
	if !ok {
		g.log.Debugf("disapprove: no entity with id %s", id)
		return false
	}

	g.log.Infof("disapproved %s %s (%q)", kind, entity.ID, entity.Title)
	g.notify(entity, "❌ "+label(kind)+" disapproved.\nContact the administrator for details.")
	return true
}

// Ban blocks a user from registering anything new. Entities the user already
// registered are left untouched.
func (g *Gate) Ban(ctx context.Context, userID string) bool {
	ok := g.store.SetBanned(ctx, userID, true)
	if ok {
		g.log.Infof("banned user %s", userID)
	}
	return ok
}

// Unban lifts a ban.
func (g *Gate) Unban(ctx context.Context, userID string) bool {
	ok := g.store.SetBanned(ctx, userID, false)
	if ok {
		g.log.Infof("unbanned user %s", userID)
	}
	return ok
}

func (g *Gate) notify(entity models.Entity, text string) {
	chatID, err := entity.ChatID()
	if err != nil {
		g.log.Warnf("cannot notify entity %s: %v", entity.ID, err)
		return
	}
	if _, err := g.bot.Send(chatID, text); err != nil {
		g.log.Warnf("failed to notify chat %s: %v", entity.ID, err)
	}
}

func label(kind models.Kind) string {
	if kind == models.KindChannel {
		return "Channel"
	}
	return "Group"
}
