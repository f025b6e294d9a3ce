package registrar

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tg-promo/promobot/internal/models"
	"gopkg.in/telebot.v4"
)

// HandleStart answers /start with the command overview.
func (r *Registrar) HandleStart(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.BotHandleTimeout)
	defer cancel()

	uc := NewUpdateContext(ctx, c)
	uc.L().Info("start command received")

	return c.Send(
		"Welcome to the cross-promotion bot! 📢\n\n" +
			"Available commands:\n" +
			"/register - How to register a channel or group\n" +
			"/mychannels - List your registered channels\n" +
			"/mygroups - List your registered groups",
	)
}

// HandleRegister answers /register with the registration instructions,
// rejecting banned users and users already at both quotas.
func (r *Registrar) HandleRegister(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.BotHandleTimeout)
	defer cancel()

	uc := NewUpdateContext(ctx, c)
	uc.L().Info("register command received")

	user := r.store.GetOrCreateUser(uc, strconv.FormatInt(c.Sender().ID, 10))
	if user.IsBanned {
		return c.Send("❌ You are banned and cannot register channels or groups.")
	}
	if user.ChannelCount >= r.config.MaxPerOwner && user.GroupCount >= r.config.MaxPerOwner {
		return c.Send(fmt.Sprintf(
			"❌ You already reached the maximum of %d channels and %d groups.",
			r.config.MaxPerOwner,
			r.config.MaxPerOwner,
		))
	}

	return c.Send(fmt.Sprintf(
		"📝 To register a channel or group:\n\n"+
			"1. Add this bot as an administrator of your channel/group\n"+
			"2. Registration happens automatically!\n\n"+
			"Requirements:\n"+
			"• At least %d members\n"+
			"• The bot must be an administrator",
		r.config.MinMembers,
	))
}

// HandleMyChannels lists the sender's registered channels.
func (r *Registrar) HandleMyChannels(c telebot.Context) error {
	return r.handleOwnedList(c, models.KindChannel)
}

// HandleMyGroups lists the sender's registered groups.
func (r *Registrar) HandleMyGroups(c telebot.Context) error {
	return r.handleOwnedList(c, models.KindGroup)
}

func (r *Registrar) handleOwnedList(c telebot.Context, kind models.Kind) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.BotHandleTimeout)
	defer cancel()

	uc := NewUpdateContext(ctx, c)
	uc.L().Infof("owned %s list requested", kind)

	owned := r.store.EntitiesByOwner(kind, strconv.FormatInt(c.Sender().ID, 10))
	if len(owned) == 0 {
		return c.Send(fmt.Sprintf("📢 You have no registered %ss yet.", kind))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Your registered %ss:\n\n", kind)
	for _, e := range owned {
		approved := "No"
		if e.IsApproved {
			approved = "Yes"
		}
		fmt.Fprintf(
			&sb,
			"📌 %s\n👥 %d members\n📊 Category: %s\n🔗 Link: %s\n✅ Approved: %s\n\n",
			e.Title,
			e.MemberCount,
			e.Category,
			e.InviteLink,
			approved,
		)
	}

	return c.Send(strings.TrimRight(sb.String(), "\n"))
}
