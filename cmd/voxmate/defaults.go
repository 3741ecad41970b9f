package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Identity
	viper.SetDefault("owner", "")
	viper.SetDefault("call_names", []string{"bot"})

	// Game session
	viper.SetDefault("session.url", "ws://127.0.0.1:25580/session")
	viper.SetDefault("session.name", "voxmate")
	viper.SetDefault("session.token", "")
	viper.SetDefault("session.protocol_version", "1.1")
	viper.SetDefault("session.fallback_version", "1.0")
	viper.SetDefault("session.max_attempts", 5)
	viper.SetDefault("session.attempt_delay", 5*time.Second)
	viper.SetDefault("session.disconnect_delay", 5*time.Second)
	viper.SetDefault("session.error_delay", 10*time.Second)
	viper.SetDefault("session.kick_delay", 30*time.Second)
	viper.SetDefault("session.cycle_delay", 60*time.Second)

	// Language backend (optional; rule planning works without it)
	viper.SetDefault("llm.endpoint", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.api_key", "")

	// Persistence
	viper.SetDefault("state.dir", "~/.voxmate")
	viper.SetDefault("state.flush_interval", 60*time.Second)
}
