package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalTOML = `
[[instruments]]
symbol = "RELIANCE"
kind = "equity"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func setCreds(t *testing.T) {
	t.Helper()
	t.Setenv("DHAN_CLIENT_ID", "client-1")
	t.Setenv("DHAN_ACCESS_TOKEN", "token-1")
	t.Setenv("DHAN_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setCreds(t)
	cfg, err := Load(writeConfig(t, minimalTOML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.FlushInterval() != 5*time.Second {
		t.Errorf("flush interval: %s", cfg.FlushInterval())
	}
	if cfg.SilenceTimeout() != 30*time.Second {
		t.Errorf("silence timeout: %s", cfg.SilenceTimeout())
	}
	if cfg.Feed.SubscribeBatch != 100 {
		t.Errorf("subscribe batch: %d", cfg.Feed.SubscribeBatch)
	}
	if cfg.BackoffBase() != time.Second || cfg.BackoffMax() != 60*time.Second {
		t.Errorf("backoff defaults: %s / %s", cfg.BackoffBase(), cfg.BackoffMax())
	}
	if cfg.Channel.MaxAttempts != 3 {
		t.Errorf("channel attempts: %d", cfg.Channel.MaxAttempts)
	}
	if cfg.Feed.WsURL == "" {
		t.Error("feed url default missing")
	}
	if cfg.BackoffJitter() != 0.2 {
		t.Errorf("backoff jitter default: %v", cfg.BackoffJitter())
	}
}

func TestExplicitZeroJitterIsKept(t *testing.T) {
	setCreds(t)
	content := minimalTOML + "\n[feed]\nbackoff_jitter = 0.0\n"
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackoffJitter() != 0 {
		t.Errorf("explicit zero jitter overridden to %v", cfg.BackoffJitter())
	}
}

func TestLoadAcceptsDhanTokenFallback(t *testing.T) {
	setCreds(t)
	t.Setenv("DHAN_ACCESS_TOKEN", "")
	t.Setenv("DHAN_TOKEN", "fallback-token")

	cfg, err := Load(writeConfig(t, minimalTOML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Credentials.DhanAccessToken != "fallback-token" {
		t.Errorf("fallback token not picked up: %q", cfg.Credentials.DhanAccessToken)
	}
}

func TestLoadFailsWithoutInstruments(t *testing.T) {
	setCreds(t)
	if _, err := Load(writeConfig(t, "[app]\nflush_interval_sec = 5\n")); err == nil {
		t.Fatal("empty instrument list accepted")
	}
}

func TestLoadFailsWithoutCredentials(t *testing.T) {
	setCreds(t)
	t.Setenv("DHAN_ACCESS_TOKEN", "")
	if _, err := Load(writeConfig(t, minimalTOML)); err == nil {
		t.Fatal("missing credentials accepted")
	}
}

func TestLoadFailsWhenTelegramEnabledWithoutToken(t *testing.T) {
	setCreds(t)
	content := minimalTOML + "\n[telegram]\nenabled = true\nchat = \"12345\"\n"
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("telegram without token accepted")
	}
}

func TestChatIDEnvOverride(t *testing.T) {
	setCreds(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	content := minimalTOML + "\n[telegram]\nenabled = true\nchat = \"@somechannel\"\n"

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Chat != "-100123" {
		t.Errorf("env override not applied: %q", cfg.Telegram.Chat)
	}
}
