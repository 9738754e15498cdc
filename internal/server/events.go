package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/backoff"
	"github.com/nao1215/stagenotify/pkg/event"
	"github.com/nao1215/stagenotify/pkg/logger"
)

// handleEmitEvent はドメインイベントを受け付けて配信するハンドラ。
// 配信が失敗した場合はイベント全体を再試行する。配信済みの通知先は重複として抑止される。
func (s *Server) handleEmitEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディの読み込みに失敗しました"})
			return
		}

		e, err := event.Decode(body)
		if err != nil {
			msg := "リクエストが不正です"
			if errors.Is(err, event.ErrMissingKind) {
				msg = "イベント種別が必要です"
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}

		var result notification.Result
		err = backoff.Retry(c.Request.Context(), s.opts.EmitMaxAttempts, s.opts.BackoffBaseDelay,
			func(ctx context.Context) error {
				var emitErr error
				result, emitErr = s.emitter.EmitEvent(ctx, e)
				return emitErr
			},
			func(attempt int, err error) {
				logger.L().Warn("イベント配信を再試行します",
					zap.String("eventKind", string(e.Kind)),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			},
		)
		if err != nil {
			logger.L().Error("イベント配信に失敗", zap.String("eventKind", string(e.Kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの配信に失敗しました"})
			return
		}

		if result.Recipients == nil {
			result.Recipients = []string{}
		}
		c.JSON(http.StatusOK, result)
	}
}
