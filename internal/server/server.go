package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/stagenotify/internal/metrics"
	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/event"
	"github.com/nao1215/stagenotify/pkg/logger"
	"github.com/nao1215/stagenotify/pkg/middleware"
)

// shutdownTimeout は停止時に処理中のリクエストを待つ時間。
const shutdownTimeout = 10 * time.Second

// Emitter はイベントを配信する。*notification.Dispatcherが満たす。
type Emitter interface {
	EmitEvent(ctx context.Context, e event.DomainEvent) (notification.Result, error)
}

// Pinger はデータストアの疎通確認。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options はサーバーの設定。
type Options struct {
	// Port はリッスンポート。
	Port string
	// JWTSecret はJWTトークンの検証に使う共有シークレット。
	JWTSecret string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// EmitMaxAttempts はイベント配信の最大試行回数。
	EmitMaxAttempts int
	// BackoffBaseDelay は再試行の基準待ち時間。
	BackoffBaseDelay time.Duration
}

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// opts はサーバーの設定。
	opts Options
	// emitter はイベントの配信先。
	emitter Emitter
	// inbox はユーザー向けの通知一覧。
	inbox notification.Inbox
	// pinger はヘルスチェックで使う疎通確認。nilなら確認しない。
	pinger Pinger
}

// NewServer は新しい通知サーバーを生成する。
func NewServer(opts Options, emitter Emitter, inbox notification.Inbox, pinger Pinger) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router:  router,
		opts:    opts,
		emitter: emitter,
		inbox:   inbox,
		pinger:  pinger,
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされたら停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("通知サービスを起動します", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("通知サービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(s.opts.JWTSecret))
	{
		notifications := api.Group("/notifications")
		{
			// 通知一覧取得
			notifications.GET("", s.handleList())
			// 未読通知一覧取得
			notifications.GET("/unread", s.handleListUnread())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
		}

		// イベント受付（内部API - 公演・キャスティング機能から呼び出される）
		internal := api.Group("/internal")
		{
			internal.POST("/events", s.handleEmitEvent())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
	// Prometheusメトリクス
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// handleHealth はサービスとデータストアの状態を返すハンドラ。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.pinger != nil {
			if err := s.pinger.Ping(c.Request.Context()); err != nil {
				logger.L().Warn("データストアの疎通確認に失敗", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "notification"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notification"})
	}
}
