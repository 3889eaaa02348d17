package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	APIKey     string `mapstructure:"API_KEY"`
	SecretKey  string `mapstructure:"SECRET_KEY"`
	CACertPath string `mapstructure:"CA_CERT_PATH"`
	CAPassword string `mapstructure:"CA_PASSWORD"`

	BridgeURL string `mapstructure:"BRIDGE_URL"`
	NatsURL   string `mapstructure:"NATS_URL"`
	Port      string `mapstructure:"PORT"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `mapstructure:"TELEGRAM_CHAT_ID"`

	SheetWebhookURL string `mapstructure:"SHEET_WEBHOOK_URL"`
	SheetTab        string `mapstructure:"SHEET_TAB"`
}

// Error 代表啟動期設定錯誤 (fatal at startup)
type Error struct {
	Missing string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s must be set in environment variables", e.Missing)
}

func LoadConfig() (config Config, err error) {
	// .env is optional, real deployments use environment variables
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BRIDGE_URL", "http://localhost:8000")

	// bind keys explicitly so AutomaticEnv sees them without a config file
	for _, key := range []string{
		"API_KEY", "SECRET_KEY", "CA_CERT_PATH", "CA_PASSWORD",
		"BRIDGE_URL", "NATS_URL", "PORT",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"SHEET_WEBHOOK_URL", "SHEET_TAB",
	} {
		_ = viper.BindEnv(key)
	}

	err = viper.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	}
	if err != nil {
		return Config{}, err
	}
	err = viper.Unmarshal(&config)
	return
}

// Validate checks the credentials required before a session can be opened.
// The CA pair is only needed when placing real orders.
func (c Config) Validate(simulation bool) error {
	if c.APIKey == "" || c.SecretKey == "" {
		return &Error{Missing: "API_KEY and SECRET_KEY"}
	}
	if !simulation {
		if c.CACertPath == "" || c.CAPassword == "" {
			return &Error{Missing: "CA_CERT_PATH and CA_PASSWORD"}
		}
	}
	return nil
}
