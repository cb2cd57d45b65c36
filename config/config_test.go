package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "REPLY_DELAY", "CONVERSATION_TTL", "REDIS_URL", "GIN_MODE"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.ReplyDelay)
	assert.Equal(t, 30*time.Minute, cfg.ConversationTTL)
	assert.Empty(t, cfg.RedisURL)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("REPLY_DELAY", "250")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.ReplyDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestParseDuration(t *testing.T) {
	fallback := time.Second

	assert.Equal(t, 2*time.Second, parseDuration("2s", fallback))
	assert.Equal(t, 1500*time.Millisecond, parseDuration("1500", fallback))
	assert.Equal(t, fallback, parseDuration("soon", fallback))
	assert.Equal(t, fallback, parseDuration("-5s", fallback))
	assert.Equal(t, fallback, parseDuration("", fallback))
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
