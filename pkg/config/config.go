// Package config は通知サービスの設定を環境変数と.envファイルから読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	// DriverSQLite はSQLiteストアを表すDB_DRIVERの値。
	DriverSQLite = "sqlite"
	// DriverPostgres はPostgresストアを表すDB_DRIVERの値。
	DriverPostgres = "postgres"
)

// Config は通知サービスの設定値。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `mapstructure:"PORT"`
	// DBDriver は永続化に使うドライバ（sqlite または postgres）。
	DBDriver string `mapstructure:"DB_DRIVER"`
	// SQLitePath はSQLiteのDSN。
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// PostgresDSN はPostgresの接続文字列。
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	// RedisAddr は重複排除キャッシュに使うRedisのアドレス。空の場合はキャッシュを使わない。
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisDedupeTTLSeconds は重複排除キャッシュの有効期間（秒）。
	RedisDedupeTTLSeconds int `mapstructure:"REDIS_DEDUPE_TTL_SECONDS"`
	// JWTSecret はユーザー向けAPIのJWT検証に使う秘密鍵。
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// EmailOutboxEnabled がfalseの場合、メール送信ジョブをキューに積まない。
	EmailOutboxEnabled bool `mapstructure:"EMAIL_OUTBOX_ENABLED"`
	// EmitMaxAttempts はイベント配信の最大試行回数（初回を含む）。1なら再試行しない。
	EmitMaxAttempts int `mapstructure:"EMIT_MAX_ATTEMPTS"`
	// BackoffBaseDelayMs はリトライ間隔の基準値（ミリ秒）。
	BackoffBaseDelayMs int `mapstructure:"BACKOFF_BASE_DELAY_MS"`
	// CORSAllowedOrigins はCORSを許可するオリジンのカンマ区切り一覧。
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// LogDevelopment がtrueの場合は開発用のログ出力にする。
	LogDevelopment bool `mapstructure:"LOG_DEVELOPMENT"`
	// LogLevel はログレベル（debug, info, warn, error）。空の場合は出力形式ごとの既定値。
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// defaults は各設定項目の既定値。
var defaults = map[string]any{
	"PORT":                     "8086",
	"DB_DRIVER":                DriverSQLite,
	"SQLITE_PATH":              "/data/notification.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
	"POSTGRES_DSN":             "",
	"REDIS_ADDR":               "",
	"REDIS_DEDUPE_TTL_SECONDS": 86400,
	"JWT_SECRET":               "dev-secret-key",
	"EMAIL_OUTBOX_ENABLED":     true,
	"EMIT_MAX_ATTEMPTS":        3,
	"BACKOFF_BASE_DELAY_MS":    100,
	"CORS_ALLOWED_ORIGINS":     "",
	"LOG_DEVELOPMENT":          false,
	"LOG_LEVEL":                "",
}

// Load はdir配下の.envファイル（存在する場合）と環境変数から設定を読み込む。
// 環境変数が.envファイルより優先される。
func Load(dir string) (*Config, error) {
	vip := viper.New()
	vip.SetConfigType("env")
	vip.SetConfigName(".env")
	vip.AddConfigPath(dir)
	vip.AutomaticEnv()

	for key, value := range defaults {
		vip.SetDefault(key, value)
		if err := vip.BindEnv(key); err != nil {
			return nil, fmt.Errorf("環境変数 %s のバインドに失敗: %w", key, err)
		}
	}

	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("DB_DRIVER=postgres の場合は POSTGRES_DSN が必要です")
		}
	default:
		return fmt.Errorf("未対応のDB_DRIVERです: %q", c.DBDriver)
	}
	if c.EmitMaxAttempts < 1 {
		return fmt.Errorf("EMIT_MAX_ATTEMPTS は1以上である必要があります: %d", c.EmitMaxAttempts)
	}
	if c.LogLevel != "" {
		var level zapcore.Level
		if err := level.Set(c.LogLevel); err != nil {
			return fmt.Errorf("未対応のLOG_LEVELです: %q", c.LogLevel)
		}
	}
	return nil
}

// BackoffBaseDelay はリトライ間隔の基準値を返す。
func (c *Config) BackoffBaseDelay() time.Duration {
	return time.Duration(c.BackoffBaseDelayMs) * time.Millisecond
}

// RedisDedupeTTL は重複排除キャッシュの有効期間を返す。
func (c *Config) RedisDedupeTTL() time.Duration {
	return time.Duration(c.RedisDedupeTTLSeconds) * time.Second
}

// AllowedOrigins はCORSを許可するオリジンの一覧を返す。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
