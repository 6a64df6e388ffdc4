package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/slipline/internal/ingest"
)

func validConfig() *Config {
	return &Config{
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Account:  AccountConfig{ID: "12345", Phone: "+15551234567"},
		Gateway:  GatewayConfig{BaseURL: "http://localhost:8484"},
		Enricher: EnricherConfig{BaseURL: "http://localhost:9090"},
		Ingest:   IngestConfig{Channels: []int64{777}},
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("requires redis addr", func(t *testing.T) {
		c := validConfig()
		c.Redis.Addr = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis.addr is required")
	})

	t.Run("requires account id", func(t *testing.T) {
		c := validConfig()
		c.Account.ID = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account.id is required")
	})

	t.Run("requires gateway base url", func(t *testing.T) {
		c := validConfig()
		c.Gateway.BaseURL = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway.base_url is required")
	})

	t.Run("requires enricher base url", func(t *testing.T) {
		c := validConfig()
		c.Enricher.BaseURL = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enricher.base_url is required")
	})

	t.Run("requires at least one channel", func(t *testing.T) {
		c := validConfig()
		c.Ingest.Channels = nil
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no channels configured")
	})

	t.Run("rejects duplicate channels", func(t *testing.T) {
		c := validConfig()
		c.Ingest.Channels = []int64{777, 777}
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate channel ID: 777")
	})

	t.Run("rejects zero channel", func(t *testing.T) {
		c := validConfig()
		c.Ingest.Channels = []int64{0}
		assert.Error(t, c.Validate())
	})

	t.Run("rejects negative page size", func(t *testing.T) {
		c := validConfig()
		c.Ingest.PageSize = -1
		assert.Error(t, c.Validate())
	})

	t.Run("rejects negative timeouts", func(t *testing.T) {
		c := validConfig()
		c.Gateway.TimeoutSeconds = -1
		assert.Error(t, c.Validate())

		c = validConfig()
		c.Enricher.TimeoutSeconds = -1
		assert.Error(t, c.Validate())
	})
}

func TestDefaults(t *testing.T) {
	c := validConfig()

	assert.Equal(t, ingest.DefaultTriggerPhrase, c.TriggerPhrase())
	assert.Equal(t, ingest.DefaultPageSize, c.PageSize())

	c.Ingest.TriggerPhrase = "custom trigger"
	c.Ingest.PageSize = 25
	assert.Equal(t, "custom trigger", c.TriggerPhrase())
	assert.Equal(t, 25, c.PageSize())

	assert.Equal(t, DefaultGatewayTimeout, c.GatewayTimeout())
	assert.Equal(t, DefaultEnricherTimeout, c.EnricherTimeout())

	c.Gateway.TimeoutSeconds = 5
	c.Enricher.TimeoutSeconds = 120
	assert.Equal(t, 5*time.Second, c.GatewayTimeout())
	assert.Equal(t, 120*time.Second, c.EnricherTimeout())
}

func TestLoad(t *testing.T) {
	t.Run("loads a valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "slipline.yml")
		content := `
redis:
  addr: localhost:6379
  prefix: slipline
account:
  id: "12345"
  phone: "+15551234567"
gateway:
  base_url: http://localhost:8484
enricher:
  base_url: http://localhost:9090
ingest:
  channels: [777, 888]
  page_size: 25
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "slipline", cfg.Redis.Prefix)
		assert.Equal(t, []int64{777, 888}, cfg.Ingest.Channels)
		assert.Equal(t, 25, cfg.PageSize())
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "slipline.yml")
		require.NoError(t, os.WriteFile(path, []byte("redis: ["), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("invalid config is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "slipline.yml")
		require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: localhost:6379\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
