package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sparrow/chat"
)

const (
	defaultReplyDelay      = chat.ReplyDelay
	defaultConversationTTL = 30 * time.Minute
)

type Config struct {
	Port    string
	GinMode string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL       string
	AllowedOrigins []string

	ReplyDelay      time.Duration
	ConversationTTL time.Duration

	LogLevel string
	LogFile  string
}

func Load() *Config {
	godotenv.Load()
	godotenv.Load("../.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("GIN_MODE", "debug")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "file::memory:?cache=shared")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "sparrow")
	v.SetDefault("DB_PASSWORD", "sparrow")
	v.SetDefault("DB_NAME", "sparrow")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", defaultOrigins())

	v.SetDefault("REPLY_DELAY", defaultReplyDelay.String())
	v.SetDefault("CONVERSATION_TTL", defaultConversationTTL.String())

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	return &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBPath:     v.GetString("DB_PATH"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),

		RedisURL:       v.GetString("REDIS_URL"),
		AllowedOrigins: parseOrigins(v.GetString("ALLOWED_ORIGINS")),

		ReplyDelay:      parseDuration(v.GetString("REPLY_DELAY"), defaultReplyDelay),
		ConversationTTL: parseDuration(v.GetString("CONVERSATION_TTL"), defaultConversationTTL),

		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=disable TimeZone=UTC"
}

func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// parseDuration accepts Go durations ("1.5s") and bare milliseconds ("1500").
func parseDuration(s string, fallback time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if d, err := time.ParseDuration(s + "ms"); err == nil && d >= 0 {
		return d
	}
	return fallback
}

func defaultOrigins() string {
	if os.Getenv("GIN_MODE") != "release" {
		return "http://localhost:5173,http://localhost:3000,http://localhost:8000"
	}
	return ""
}

func parseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
