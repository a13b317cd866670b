package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RedisMode selects how the cache layer connects to Redis.
type RedisMode string

const (
	RedisModeDirect   RedisMode = "redis"
	RedisModeSentinel RedisMode = "sentinel"
)

// Env holds every environment-derived setting the service needs to boot.
// It is built once at startup by Parse and passed down by value-holding
// pointer to every component, mirroring the teacher's immutable shared
// Env record pattern (config/config.go's EnvConfig, generalized here into
// one concrete struct since the service has a fixed, known shape).
type Env struct {
	RedisMode      RedisMode
	RedisURL       string
	RedisSentinels []string

	SentryURL        string
	DatabaseMigrate  bool
	DatabaseRefresh  bool
	DatabaseURL      string
	DatabaseURLWrite string // DATABASE_URL_PRIMARY; empty means DatabaseURL serves both read+write

	GithubClientID     string
	GithubClientSecret string

	S3URL       string
	S3PathStyle bool
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	ClickhouseURL      string
	ClickhouseDatabase string
	ClickhouseUsername string
	ClickhousePassword string

	FilesCache    string
	FilesLocation string

	Bind string
	Port int

	AppURL            string
	AppFrontendURL    string
	AppCookieDomain   string
	ServerName        string
	LogLevel          string
	MetricsEnabled    bool
}

// Parse loads the service configuration from the environment, optionally
// layering in a ".env" file first (viper.AutomaticEnv mirrors the Rust
// source's best-effort dotenvy::dotenv().ok() call: missing .env is not an
// error, only explicitly-required variables are). Required variables that
// are still unset after loading cause a fatal validation error, matching
// the teacher's MustGetString panic-on-missing posture.
func Parse() (*Env, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // best effort, matches dotenvy::dotenv().ok()
	v.AutomaticEnv()

	v.SetDefault("REDIS_MODE", "redis")
	v.SetDefault("DATABASE_MIGRATE", false)
	v.SetDefault("DATABASE_REFRESH", false)
	v.SetDefault("S3_PATH_STYLE", true)
	v.SetDefault("BIND", "0.0.0.0")
	v.SetDefault("PORT", 6969)
	v.SetDefault("FILES_CACHE", "/mnt/mcjars-cache")
	v.SetDefault("FILES_LOCATION", "/mnt/mcjars")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ENABLED", true)

	mode := RedisMode(strings.ToLower(v.GetString("REDIS_MODE")))
	if mode != RedisModeDirect && mode != RedisModeSentinel {
		return nil, fmt.Errorf("invalid REDIS_MODE %q", mode)
	}

	env := &Env{
		RedisMode:       mode,
		SentryURL:       v.GetString("SENTRY_URL"),
		DatabaseMigrate: v.GetBool("DATABASE_MIGRATE"),
		DatabaseRefresh: v.GetBool("DATABASE_REFRESH"),
		DatabaseURL:     v.GetString("DATABASE_URL"),

		GithubClientID:     v.GetString("GITHUB_CLIENT_ID"),
		GithubClientSecret: v.GetString("GITHUB_CLIENT_SECRET"),

		S3URL:       v.GetString("S3_URL"),
		S3PathStyle: v.GetBool("S3_PATH_STYLE"),
		S3Endpoint:  v.GetString("S3_ENDPOINT"),
		S3Region:    v.GetString("S3_REGION"),
		S3Bucket:    v.GetString("S3_BUCKET"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),

		ClickhouseURL:      v.GetString("CLICKHOUSE_URL"),
		ClickhouseDatabase: v.GetString("CLICKHOUSE_DATABASE"),
		ClickhouseUsername: v.GetString("CLICKHOUSE_USERNAME"),
		ClickhousePassword: v.GetString("CLICKHOUSE_PASSWORD"),

		FilesCache:    v.GetString("FILES_CACHE"),
		FilesLocation: v.GetString("FILES_LOCATION"),

		Bind: v.GetString("BIND"),
		Port: v.GetInt("PORT"),

		AppURL:          v.GetString("APP_URL"),
		AppFrontendURL:  v.GetString("APP_FRONTEND_URL"),
		AppCookieDomain: v.GetString("APP_COOKIE_DOMAIN"),
		ServerName:      v.GetString("SERVER_NAME"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		MetricsEnabled:  v.GetBool("METRICS_ENABLED"),
	}

	if url := v.GetString("DATABASE_URL_PRIMARY"); url != "" {
		env.DatabaseURLWrite = url
	}

	if mode == RedisModeDirect {
		env.RedisURL = v.GetString("REDIS_URL")
	} else {
		env.RedisSentinels = splitCSV(v.GetString("REDIS_SENTINELS"))
	}

	validator := NewValidator()
	validator.RequireOneOf("REDIS_MODE", string(mode), []string{"redis", "sentinel"})
	if mode == RedisModeDirect {
		validator.RequireString("REDIS_URL", env.RedisURL)
	} else if len(env.RedisSentinels) == 0 {
		validator.RequireString("REDIS_SENTINELS", "")
	}
	validator.RequireString("DATABASE_URL", env.DatabaseURL)
	validator.RequireString("S3_URL", env.S3URL)
	validator.RequireString("S3_ENDPOINT", env.S3Endpoint)
	validator.RequireString("S3_REGION", env.S3Region)
	validator.RequireString("S3_BUCKET", env.S3Bucket)
	validator.RequireString("S3_ACCESS_KEY", env.S3AccessKey)
	validator.RequireString("S3_SECRET_KEY", env.S3SecretKey)
	validator.RequireString("CLICKHOUSE_URL", env.ClickhouseURL)
	validator.RequireString("CLICKHOUSE_DATABASE", env.ClickhouseDatabase)
	validator.RequireString("APP_URL", env.AppURL)
	validator.RequireString("APP_FRONTEND_URL", env.AppFrontendURL)
	validator.RequireString("APP_COOKIE_DOMAIN", env.AppCookieDomain)

	if err := validator.Validate(); err != nil {
		return nil, err
	}

	return env, nil
}

// RedisAddr renders the connection target passed to the cache layer: a
// plain URL in direct mode, or a "sentinel://" composite URL the way the
// Rust source built one inline in cache.rs's Cache::new.
func (e *Env) RedisAddr() string {
	if e.RedisMode == RedisModeDirect {
		return e.RedisURL
	}
	return fmt.Sprintf("sentinel://%s/mymaster/0", strings.Join(e.RedisSentinels, ","))
}

// WriteDatabaseURL returns the primary (writer) connection string, falling
// back to the shared URL when no separate writer is configured.
func (e *Env) WriteDatabaseURL() string {
	if e.DatabaseURLWrite != "" {
		return e.DatabaseURLWrite
	}
	return e.DatabaseURL
}

// HasSeparateReadPool reports whether reads should use a distinct pool.
func (e *Env) HasSeparateReadPool() bool {
	return e.DatabaseURLWrite != ""
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
