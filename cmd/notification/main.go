// 通知サービスのエントリポイント。
// 公演・キャスティング・公演回のドメインイベントを受け付け、
// 通知先を解決してアプリ内通知とメール送信ジョブを生成する。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/internal/notification/postgres"
	"github.com/nao1215/stagenotify/internal/notification/rediscache"
	"github.com/nao1215/stagenotify/internal/notification/sqlite"
	"github.com/nao1215/stagenotify/internal/server"
	"github.com/nao1215/stagenotify/pkg/config"
	"github.com/nao1215/stagenotify/pkg/logger"
)

// store は通知サービスが必要とする永続化層。
type store interface {
	notification.RecipientDirectory
	notification.NotificationRepository
	notification.EmailOutbox
	notification.Inbox
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "通知サービスの起動に失敗: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if err := logger.InitializeLogger(cfg.LogDevelopment, cfg.LogLevel); err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.L().Warn("データストアのクローズに失敗", zap.Error(err))
		}
	}()

	deps := notification.Dependencies{
		Recipients:    st,
		Notifications: st,
	}
	if cfg.RedisAddr != "" {
		client := rediscache.NewClient(cfg.RedisAddr)
		defer func() { _ = client.Close() }()
		deps.Notifications = rediscache.New(st, client, cfg.RedisDedupeTTL())
		logger.L().Info("重複排除キャッシュを有効化", zap.String("addr", cfg.RedisAddr))
	}
	if cfg.EmailOutboxEnabled {
		deps.EmailOutbox = st
	}

	dispatcher, err := notification.NewDispatcher(deps)
	if err != nil {
		return fmt.Errorf("ディスパッチャーの初期化に失敗: %w", err)
	}

	srv := server.NewServer(server.Options{
		Port:             cfg.Port,
		JWTSecret:        cfg.JWTSecret,
		AllowedOrigins:   cfg.AllowedOrigins(),
		EmitMaxAttempts:  cfg.EmitMaxAttempts,
		BackoffBaseDelay: cfg.BackoffBaseDelay(),
	}, dispatcher, st, st)

	return srv.Run(ctx)
}

// openStore は設定に応じたデータストアを開く。
func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("Postgresの初期化に失敗: %w", err)
		}
		logger.L().Info("Postgresストアを使用します")
		return st, nil
	default:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("SQLiteの初期化に失敗: %w", err)
		}
		logger.L().Info("SQLiteストアを使用します", zap.String("dsn", cfg.SQLitePath))
		return st, nil
	}
}
