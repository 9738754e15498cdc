package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/logger"
	"github.com/nao1215/stagenotify/pkg/middleware"
)

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// Kind は通知種別。
	Kind string `json:"kind"`
	// EventKind は元になったイベント種別。
	EventKind string `json:"event_kind"`
	// EntityType は参照先エンティティの種類。
	EntityType string `json:"entity_type"`
	// EntityID は参照先エンティティのID。
	EntityID string `json:"entity_id"`
	// Payload はイベントペイロード。
	Payload map[string]any `json:"payload"`
	// Channels は配信チャネル。
	Channels []string `json:"channels"`
	// IsRead は通知の既読状態。
	IsRead bool `json:"is_read"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toNotificationResponse は通知レコードをJSONレスポンスに変換する。
func toNotificationResponse(n notification.NotificationRecord) notificationResponse {
	channels := make([]string, 0, len(n.Channels))
	for _, ch := range n.Channels {
		channels = append(channels, string(ch))
	}
	payload := map[string]any(n.Payload)
	if payload == nil {
		payload = map[string]any{}
	}
	return notificationResponse{
		ID:         n.ID,
		Kind:       string(n.Kind),
		EventKind:  string(n.EventKind),
		EntityType: string(n.EntityType),
		EntityID:   n.EntityID,
		Payload:    payload,
		Channels:   channels,
		IsRead:     n.IsRead(),
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
	}
}

// toNotificationResponses は通知レコードのスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(records []notification.NotificationRecord) []notificationResponse {
	responses := make([]notificationResponse, 0, len(records))
	for _, n := range records {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		records, err := s.inbox.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			logger.L().Error("通知一覧取得エラー", zap.String("userID", userID), zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(records))
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		records, err := s.inbox.ListUnread(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			logger.L().Error("未読通知一覧取得エラー", zap.String("userID", userID), zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(records))
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")
		if notificationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "通知IDが必要です"})
			return
		}

		// 通知の存在確認と所有者チェック
		n, err := s.inbox.GetByID(c.Request.Context(), notificationID)
		if errors.Is(err, notification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			logger.L().Error("通知取得エラー", zap.String("notificationID", notificationID), zap.Error(err))
			return
		}

		if n.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		if err := s.inbox.MarkAsRead(c.Request.Context(), notificationID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			logger.L().Error("通知既読処理エラー", zap.String("notificationID", notificationID), zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		if err := s.inbox.MarkAllAsRead(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			logger.L().Error("全通知既読処理エラー", zap.String("userID", userID), zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました"})
	}
}
