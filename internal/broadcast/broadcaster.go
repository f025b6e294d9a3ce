// Package broadcast implements the recurring cross-promotion fan-out. Each
// tick reads the approved entities per tier, splits them into bounded chunks,
// and posts one partner-list message per chunk into the chunk's first chat.
// Ticks never mutate the store.
package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tg-promo/promobot/internal/config"
	"github.com/tg-promo/promobot/internal/models"
	"github.com/tg-promo/promobot/internal/storage"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"
)

// Telegram is the slice of the bot API the broadcaster needs. *telebot.Bot
// satisfies it.
type Telegram interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Broadcaster struct {
	config  *config.Config
	store   *storage.Store
	bot     Telegram
	limiter *rate.Limiter
	log     *logrus.Entry

	// inFlight keeps a slow tick from overlapping the next one; a tick that
	// would overlap is skipped, the schedule itself keeps running.
	inFlight sync.Mutex
}

func New(cfg *config.Config, store *storage.Store, bot Telegram) *Broadcaster {
	return &Broadcaster{
		config:  cfg,
		store:   store,
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(cfg.BroadcastRate), 1),
		log:     logrus.WithField("component", "broadcast"),
	}
}

// Run schedules ticks on the configured cron expression and blocks until ctx
// is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(logrus.StandardLogger())),
	))
	if _, err := c.AddFunc(b.config.BroadcastCron, func() {
		b.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling broadcast: %w", err)
	}

	b.log.Infof("broadcasting on schedule %q", b.config.BroadcastCron)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Tick runs one broadcast pass over every tier and entity kind. A failed
// chunk is logged and the pass continues; the store is only read.
func (b *Broadcaster) Tick(ctx context.Context) {
	if !b.inFlight.TryLock() {
		b.log.Warn("previous tick still running, skipping")
		return
	}
	defer b.inFlight.Unlock()

	log := b.log.WithField("tick_id", uuid.NewString())

	sent, failed := 0, 0
	for _, tier := range models.Tiers() {
		for _, kind := range models.Kinds() {
			entities := b.store.ApprovedByTier(kind, tier)
			for _, chunk := range chunked(entities, b.config.ChunkSize) {
				if err := b.limiter.Wait(ctx); err != nil {
					log.Infof("tick aborted: %v", err)
					return
				}
				if err := b.sendChunk(kind, tier, chunk); err != nil {
					failed++
					log.Errorf("failed to send %s chunk in tier %s: %v", kind, tier, err)
					continue
				}
				sent++
			}
		}
	}

	log.Infof("tick complete: %d chunks sent, %d failed", sent, failed)
}

// sendChunk posts one partner-list message into the chunk's first chat, with
// one URL button per chunk member.
func (b *Broadcaster) sendChunk(kind models.Kind, tier models.Tier, chunk []models.Entity) error {
	markup := &telebot.ReplyMarkup{}
	btns := make([]telebot.Btn, 0, len(chunk))
	for _, e := range chunk {
		btns = append(btns, markup.URL(e.Title, e.InviteLink))
	}
	markup.Inline(markup.Split(buttonsPerRow, btns)...)

	to, err := chunk[0].ChatID()
	if err != nil {
		return fmt.Errorf("resolving carrier chat: %w", err)
	}

	text := fmt.Sprintf(
		"📢 Partner %s list (%s members)\n\nTap a button below to join:",
		kind,
		tier,
	)
	if _, err := b.bot.Send(to, text, markup); err != nil {
		return fmt.Errorf("sending to chat %s: %w", chunk[0].ID, err)
	}
	return nil
}

// buttonsPerRow keeps inline keyboards within Telegram's row width limit.
const buttonsPerRow = 4

// chunked splits entities into consecutive slices of at most size, keeping
// the original order.
func chunked(entities []models.Entity, size int) [][]models.Entity {
	if size <= 0 {
		size = 1
	}
	var out [][]models.Entity
	for start := 0; start < len(entities); start += size {
		end := start + size
		if end > len(entities) {
			end = len(entities)
		}
		out = append(out, entities[start:end])
	}
	return out
}
