package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Telegram TelegramConfig `mapstructure:",squash"`
	API      APIConfig      `mapstructure:",squash"`
}

type ServerConfig struct {
	Port string `mapstructure:"PORT"`
}

type TelegramConfig struct {
	APIID         int    `mapstructure:"TELEGRAM_API_ID"`
	APIHash       string `mapstructure:"TELEGRAM_API_HASH"`
	Phone         string `mapstructure:"TELEGRAM_PHONE"`
	SessionToken  string `mapstructure:"SESSION_STRING"`
	SourceChannel string `mapstructure:"SOURCE_CHANNEL"`
	TargetChannel string `mapstructure:"TARGET_CHANNEL"`
}

type APIConfig struct {
	Key string `mapstructure:"API_KEY"`
}

var AppConfig *Config

func Init() {
	// .env first so viper sees its values as plain environment variables too.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()

	// Defaults double as key registration: without them AutomaticEnv alone
	// would not surface the keys to Unmarshal.
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("TELEGRAM_API_ID", 0)
	viper.SetDefault("TELEGRAM_API_HASH", "")
	viper.SetDefault("TELEGRAM_PHONE", "")
	viper.SetDefault("SESSION_STRING", "")
	viper.SetDefault("SOURCE_CHANNEL", "AlfredKochBayern")
	viper.SetDefault("TARGET_CHANNEL", "Koch_Avatar")
	viper.SetDefault("API_KEY", "")

	AppConfig = &Config{}
	if err := viper.Unmarshal(AppConfig); err != nil {
		log.Fatalf("Unable to decode config into struct: %v", err)
	}
}
