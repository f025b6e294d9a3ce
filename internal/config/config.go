package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tg-promo/promobot/internal/storage"
)

type Config struct {
	TelegramToken    string        `mapstructure:"telegram_token"`
	BotHandleTimeout time.Duration `mapstructure:"bot_handle_timeout"`
	ListenAddress    string        `mapstructure:"listen_address"`

	MinMembers  int `mapstructure:"min_members"`
	MaxPerOwner int `mapstructure:"max_per_owner"`

	BroadcastCron string  `mapstructure:"broadcast_cron"`
	ChunkSize     int     `mapstructure:"chunk_size"`
	BroadcastRate float64 `mapstructure:"broadcast_rate"`

	PendingWebhookURL string `mapstructure:"pending_webhook_url"`

	Storage storage.Config `mapstructure:",squash"`
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}
	return cfg
}

func SetupCommon() {
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.SetDefault("listen_address", ":8080")
	viper.SetDefault("min_members", 100)
	viper.SetDefault("max_per_owner", 3)
	viper.SetDefault("broadcast_cron", "* * * * *")
	viper.SetDefault("chunk_size", 20)
	viper.SetDefault("broadcast_rate", 25)
	viper.SetDefault("storage_driver", "file")
	viper.SetDefault("storage_path", "./promobot.json")

	viper.SetEnvPrefix("PROMOBOT")

	viper.MustBindEnv("telegram_token")
	viper.BindEnv("postgres_dsn")
	viper.BindEnv("mongo_uri")
	viper.BindEnv("mongo_db")
	viper.BindEnv("pending_webhook_url")
	viper.AutomaticEnv()
}
