// Package config loads server configuration from an optional config file
// and RECALL_-prefixed environment variables. Timer durations and house
// rules are deployment configuration, not constants.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Timers holds the per-phase default timer durations, in seconds.
type Timers struct {
	InitialPeekSec int `mapstructure:"initial_peek_sec"`
	DrawSec        int `mapstructure:"draw_sec"`
	PlaySec        int `mapstructure:"play_sec"`
	SameRankSec    int `mapstructure:"same_rank_sec"`
	PowerWindowSec int `mapstructure:"power_window_sec"`
}

// InitialPeek returns the initial-peek window duration.
func (t Timers) InitialPeek() time.Duration { return time.Duration(t.InitialPeekSec) * time.Second }

// Draw returns the draw-phase timer duration.
func (t Timers) Draw() time.Duration { return time.Duration(t.DrawSec) * time.Second }

// Play returns the play-phase timer duration.
func (t Timers) Play() time.Duration { return time.Duration(t.PlaySec) * time.Second }

// SameRank returns the same-rank window duration.
func (t Timers) SameRank() time.Duration { return time.Duration(t.SameRankSec) * time.Second }

// PowerWindow returns the queen-peek / jack-swap window duration.
func (t Timers) PowerWindow() time.Duration { return time.Duration(t.PowerWindowSec) * time.Second }

// Rules holds the configurable game rules.
type Rules struct {
	CardsPerPlayer  int  `mapstructure:"cards_per_player"`
	InitialPeekSize int  `mapstructure:"initial_peek_size"`
	SameRankWindow  bool `mapstructure:"same_rank_window"`
	ClearAndCollect bool `mapstructure:"clear_and_collect"`
	// MissedActionLimit is the number of consecutive timer fallbacks after
	// which the room layer is asked to remove the player.
	MissedActionLimit int `mapstructure:"missed_action_limit"`
}

// Config is the root configuration object.
type Config struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	LogLevel    string `mapstructure:"log_level"`
	RedisAddr   string `mapstructure:"redis_addr"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Timers      Timers `mapstructure:"timers"`
	Rules       Rules  `mapstructure:"rules"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		Timers: Timers{
			InitialPeekSec: 10,
			DrawSec:        5,
			PlaySec:        15,
			SameRankSec:    7,
			PowerWindowSec: 7,
		},
		Rules: Rules{
			CardsPerPlayer:    4,
			InitialPeekSize:   2,
			SameRankWindow:    true,
			ClearAndCollect:   false,
			MissedActionLimit: 2,
		},
	}
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the RECALL_ prefix with
// underscores, e.g. RECALL_TIMERS_DRAW_SEC=8.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("redis_addr", def.RedisAddr)
	v.SetDefault("postgres_dsn", def.PostgresDSN)
	v.SetDefault("timers.initial_peek_sec", def.Timers.InitialPeekSec)
	v.SetDefault("timers.draw_sec", def.Timers.DrawSec)
	v.SetDefault("timers.play_sec", def.Timers.PlaySec)
	v.SetDefault("timers.same_rank_sec", def.Timers.SameRankSec)
	v.SetDefault("timers.power_window_sec", def.Timers.PowerWindowSec)
	v.SetDefault("rules.cards_per_player", def.Rules.CardsPerPlayer)
	v.SetDefault("rules.initial_peek_size", def.Rules.InitialPeekSize)
	v.SetDefault("rules.same_rank_window", def.Rules.SameRankWindow)
	v.SetDefault("rules.clear_and_collect", def.Rules.ClearAndCollect)
	v.SetDefault("rules.missed_action_limit", def.Rules.MissedActionLimit)

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
