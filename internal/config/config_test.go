package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BRIDGE_WOOACRY_RESELLER_FLAG", "characterhub")
	t.Setenv("BRIDGE_WOOACRY_SECRET", "test-secret")
	t.Setenv("BRIDGE_LEDGER_BACKEND", "memory")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "https://api-new.wooacry.com", cfg.Wooacry.BaseURL)
		assert.Equal(t, "1", cfg.Wooacry.Version)
		assert.Equal(t, 15*time.Second, cfg.Wooacry.Timeout)
		assert.Equal(t, 30*time.Second, cfg.Wooacry.CreateTimeout)
		assert.Equal(t, "2024-01", cfg.Shopify.APIVersion)
		assert.Equal(t, 2.0, cfg.Shopify.RequestsPerSecond)
		assert.Equal(t, 10, cfg.Shopify.Burst)
		assert.Equal(t, LedgerMemory, cfg.Ledger.Backend)
		assert.Equal(t, "wooacry-bridge", cfg.Kafka.GroupID)
		assert.Equal(t, "shopify.orders.create", cfg.Kafka.OrdersTopic)
		assert.Equal(t, "wooacry.order.submitted", cfg.Kafka.EventsTopic)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	})

	t.Run("fails closed without partner credentials", func(t *testing.T) {
		t.Setenv("BRIDGE_LEDGER_BACKEND", "memory")
		t.Setenv("BRIDGE_WOOACRY_RESELLER_FLAG", "characterhub")

		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Secret")

		t.Setenv("BRIDGE_WOOACRY_SECRET", "test-secret")
		t.Setenv("BRIDGE_WOOACRY_RESELLER_FLAG", "")

		_, err = Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ResellerFlag")
	})

	t.Run("env overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BRIDGE_WOOACRY_TIMEOUT", "3s")
		t.Setenv("BRIDGE_LOG_LEVEL", "DEBUG")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
		t.Setenv("BRIDGE_SHOPIFY_WEBHOOK_SECRET", "shpss")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 3*time.Second, cfg.Wooacry.Timeout)
		assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "shpss", cfg.Shopify.WebhookSecret)
	})

	t.Run("prefixed name wins over the conventional one", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BRIDGE_LEDGER_BACKEND", "postgres")
		t.Setenv("POSTGRES_URL", "postgres://fallback")
		t.Setenv("BRIDGE_POSTGRES_URL", "postgres://bridge")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://bridge", cfg.Postgres.URL)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bridge.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
wooacry:
  reseller_flag: fromfile
  secret: file-secret
  base_url: https://sandbox.wooacry.test/
ledger:
  backend: memory
kafka:
  brokers:
    - a:9092
    - b:9092
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "fromfile", cfg.Wooacry.ResellerFlag)
		assert.Equal(t, "https://sandbox.wooacry.test", cfg.Wooacry.BaseURL)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		setRequired(t)

		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("ledger backends", func(t *testing.T) {
		tests := []struct {
			name    string
			env     map[string]string
			wantErr string
		}{
			{
				name:    "shopify without credentials",
				env:     map[string]string{"BRIDGE_LEDGER_BACKEND": "shopify"},
				wantErr: "shopify.store",
			},
			{
				name: "shopify with credentials",
				env: map[string]string{
					"BRIDGE_LEDGER_BACKEND":       "shopify",
					"BRIDGE_SHOPIFY_STORE":        "demo",
					"BRIDGE_SHOPIFY_ACCESS_TOKEN": "shpat",
				},
			},
			{
				name:    "postgres without url",
				env:     map[string]string{"BRIDGE_LEDGER_BACKEND": "postgres"},
				wantErr: "postgres.url",
			},
			{
				name:    "unknown",
				env:     map[string]string{"BRIDGE_LEDGER_BACKEND": "dynamo"},
				wantErr: "Backend",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				setRequired(t)
				for k, v := range tt.env {
					t.Setenv(k, v)
				}

				_, err := Load("")
				if tt.wantErr == "" {
					assert.NoError(t, err)
					return
				}
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})
}
