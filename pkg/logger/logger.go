// Package logger はサービス全体で共有するzapロガーを提供する。
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// mu は global への並行アクセスを保護する。
	mu sync.RWMutex
	// global はプロセス全体で共有するロガー。初期化前はNopロガー。
	global = zap.NewNop()
)

// InitializeLogger はグローバルロガーを初期化する。
// isDevelopment がtrueの場合は人間向けのコンソール出力、falseの場合はJSON出力になる。
// level（debug, info, warn, error）が空でなければログレベルをそれに変更する。
func InitializeLogger(isDevelopment bool, level string) error {
	var cfg zap.Config
	if isDevelopment {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.MessageKey = "message"
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.Set(level); err != nil {
			return fmt.Errorf("ログレベルの解析に失敗: %w", err)
		}
		cfg.Level.SetLevel(lvl)
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(built)
	return nil
}

// Set はグローバルロガーを差し替える。テストでobserverロガーを注入する際にも使用する。
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L はグローバルロガーを返す。
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync はバッファされたログを書き出す。
func Sync() error {
	return L().Sync()
}

// TraceIDFromContext はコンテキストのスパンからトレースIDを取り出す。
// スパンが無い場合は空文字列を返す。
func TraceIDFromContext(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
