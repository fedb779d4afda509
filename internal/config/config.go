// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Daily    DailyConfig    `mapstructure:"daily"`
	Games    GamesConfig    `mapstructure:"games"`
}

// DiscordConfig holds Discord bot configuration. GuildID scopes slash
// command registration to one guild; empty registers globally.
type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	GuildID string `mapstructure:"guild_id"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LLMConfig holds the completion API configuration for trivia and chat.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DailyConfig holds daily bonus configuration.
type DailyConfig struct {
	Amount        int64 `mapstructure:"amount"`
	CooldownHours int   `mapstructure:"cooldown_hours"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	DiceDuel DiceDuelConfig `mapstructure:"dice_duel"`
	Lottery  LotteryConfig  `mapstructure:"lottery"`
	Fishing  FishingConfig  `mapstructure:"fishing"`
	Trivia   TriviaConfig   `mapstructure:"trivia"`
}

// DiceDuelConfig holds dice duel configuration.
type DiceDuelConfig struct {
	RollTimeoutSeconds int `mapstructure:"roll_timeout_seconds"`
}

// LotteryConfig holds lottery configuration.
type LotteryConfig struct {
	TicketPrice int64 `mapstructure:"ticket_price"`
}

// FishingConfig holds fishing configuration.
type FishingConfig struct {
	BaitPrice       int64 `mapstructure:"bait_price"`
	CooldownSeconds int   `mapstructure:"cooldown_seconds"`
}

// TriviaConfig holds trivia configuration.
type TriviaConfig struct {
	MinBet               int64 `mapstructure:"min_bet"`
	MaxBet               int64 `mapstructure:"max_bet"`
	CooldownMinutes      int   `mapstructure:"cooldown_minutes"`
	AnswerTimeoutSeconds int   `mapstructure:"answer_timeout_seconds"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DISCORD_TOKEN, DATABASE_HOST, LLM_BASE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "aurabot")
	v.SetDefault("database.name", "aurabot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// LLM defaults
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.timeout", "60s")

	// Daily bonus defaults
	v.SetDefault("daily.amount", 100)
	v.SetDefault("daily.cooldown_hours", 24)

	// Game defaults
	v.SetDefault("games.dice_duel.roll_timeout_seconds", 120)
	v.SetDefault("games.lottery.ticket_price", 10)
	v.SetDefault("games.fishing.bait_price", 5)
	v.SetDefault("games.fishing.cooldown_seconds", 30)
	v.SetDefault("games.trivia.min_bet", 10)
	v.SetDefault("games.trivia.max_bet", 1000)
	v.SetDefault("games.trivia.cooldown_minutes", 5)
	v.SetDefault("games.trivia.answer_timeout_seconds", 30)
}
