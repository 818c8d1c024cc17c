package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HistoryTransport != "rabbitmq" {
		t.Errorf("expected rabbitmq, got %s", cfg.HistoryTransport)
	}
	if cfg.HistoryUploadInterval != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.HistoryUploadInterval)
	}
	if cfg.HistoryCacheTTL != 0 {
		t.Errorf("expected 0, got %s", cfg.HistoryCacheTTL)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("unexpected kafka brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("expected 587, got %d", cfg.SMTPPort)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HISTORY_TRANSPORT", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("HISTORY_UPLOAD_INTERVAL", "30s")
	t.Setenv("HISTORY_CACHE_TTL", "24h")
	t.Setenv("NOTIFY_RECIPIENTS", "a@example.com,b@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HistoryTransport != "kafka" {
		t.Errorf("expected kafka, got %s", cfg.HistoryTransport)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected kafka brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.HistoryUploadInterval != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.HistoryUploadInterval)
	}
	if cfg.HistoryCacheTTL != 24*time.Hour {
		t.Errorf("expected 24h, got %s", cfg.HistoryCacheTTL)
	}
	if len(cfg.NotifyRecipients) != 2 {
		t.Errorf("expected 2 recipients, got %v", cfg.NotifyRecipients)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown transport", map[string]string{"HISTORY_TRANSPORT": "carrier-pigeon"}},
		{"s3 without bucket", map[string]string{"HISTORY_TRANSPORT": "s3"}},
		{"bad interval", map[string]string{"HISTORY_UPLOAD_INTERVAL": "soon"}},
		{"zero interval", map[string]string{"HISTORY_UPLOAD_INTERVAL": "0s"}},
		{"bad ttl", map[string]string{"HISTORY_CACHE_TTL": "forever"}},
		{"bad smtp port", map[string]string{"SMTP_PORT": "smtp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.toml")
	content := `
[[actions]]
uuid    = "0b5e9f61-2c1d-4a7e-9a3b-5d6c7e8f9a03"
fence   = "u33dc0cr000100"
trigger = "entry"
type    = "notification"
subject = "Welcome"

[[actions]]
uuid    = "3a1e5d2c-1b4f-4f0e-8a55-0c9b7a1d2e02"
fence   = "u33dc0cr000100"
trigger = "exit"
url     = "https://example.com/bye"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	actions, err := LoadActions(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Subject != "Welcome" || actions[0].Trigger != "entry" {
		t.Errorf("unexpected first action: %+v", actions[0])
	}
	if actions[1].URL != "https://example.com/bye" {
		t.Errorf("unexpected second action: %+v", actions[1])
	}
}

func TestLoadActions_EmptyPath(t *testing.T) {
	actions, err := LoadActions("")
	if err != nil || actions != nil {
		t.Fatalf("expected no actions and no error, got %v, %v", actions, err)
	}
}

func TestLoadActions_Missing(t *testing.T) {
	if _, err := LoadActions(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error")
	}
}
