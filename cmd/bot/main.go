package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/tg-promo/promobot/internal/api"
	"github.com/tg-promo/promobot/internal/broadcast"
	"github.com/tg-promo/promobot/internal/config"
	"github.com/tg-promo/promobot/internal/gate"
	"github.com/tg-promo/promobot/internal/logging"
	"github.com/tg-promo/promobot/internal/notify"
	"github.com/tg-promo/promobot/internal/registrar"
	"github.com/tg-promo/promobot/internal/storage"
	"gopkg.in/telebot.v4"
)

func main() {
	_ = godotenv.Load()
	config.SetupCommon()
	logging.Init()

	cfg := config.New()
	logrus.Debugf("config: %+v", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatalf("Failed to open storage: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logrus.Errorf("Failed to close storage: %v", err)
		}
	}()

	store := storage.New(backend, cfg.MaxPerOwner)
	if err := store.Load(ctx); err != nil {
		logrus.Fatalf("Failed to load snapshot: %v", err)
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.TelegramToken,
		Poller: &telebot.LongPoller{
			Timeout:        10 * time.Second,
			AllowedUpdates: []string{"message", "my_chat_member"},
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	webhook := notify.NewWebhook(cfg.PendingWebhookURL)
	reg := registrar.New(cfg, store, bot, webhook)
	approvals := gate.New(store, bot)
	broadcaster := broadcast.New(cfg, store, bot)

	bot.Handle(telebot.OnMyChatMember, reg.HandleChatMemberUpdate)
	bot.Handle("/start", reg.HandleStart)
	bot.Handle("/register", reg.HandleRegister)
	bot.Handle("/mychannels", reg.HandleMyChannels)
	bot.Handle("/mygroups", reg.HandleMyGroups)

	e := echo.New()
	e.HideBanner = true
	api.NewService(store, approvals).Register(e)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Start()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.Start(cfg.ListenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Dashboard server stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := broadcaster.Run(ctx); err != nil {
			logrus.Errorf("Broadcaster stopped: %v", err)
		}
	}()

	<-ctx.Done()

	bot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shut down dashboard server: %v", err)
	}

	logrus.Info("waiting for services to finish")
	wg.Wait()
}
