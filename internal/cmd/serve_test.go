package cmd

import (
	"testing"

	"cligate/internal/config"
)

func TestFirstBotTokenPicksConfiguredToken(t *testing.T) {
	cfg := &config.Config{
		Users: map[string]*config.UserConfig{
			"alice": {Command: "claude"},
			"bob": {
				Command: "claude",
				Bridges: config.BridgesConfig{
					Telegram: &config.TelegramConfig{BotToken: "tok-bob", ChatID: 1},
				},
			},
		},
	}

	if got := firstBotToken(cfg); got != "tok-bob" {
		t.Fatalf("firstBotToken() = %q, want %q", got, "tok-bob")
	}
}

func TestFirstBotTokenEmptyWhenNoneConfigured(t *testing.T) {
	cfg := &config.Config{Users: map[string]*config.UserConfig{"alice": {Command: "claude"}}}

	if got := firstBotToken(cfg); got != "" {
		t.Fatalf("firstBotToken() = %q, want empty", got)
	}
}

func TestLaunchUserSessionRejectsUnparseableCommand(t *testing.T) {
	launch := launchUserSession(&config.Config{})
	_, err := launch("alice", &config.UserConfig{Command: `"unterminated`})
	if err == nil {
		t.Fatal("expected an error for an unparseable command string")
	}
}
