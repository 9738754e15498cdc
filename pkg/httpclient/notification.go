package httpclient

import (
	"context"
	"net/url"
	"time"

	"github.com/nao1215/stagenotify/pkg/event"
)

const (
	// eventsPath はイベント受付APIのパス。
	eventsPath = "/api/v1/internal/events"
	// notificationsPath は通知一覧APIのパス。
	notificationsPath = "/api/v1/notifications"
)

// EmitResult はイベント受付APIのレスポンス。
type EmitResult struct {
	// Delivered は新たに保存された通知の数。
	Delivered int `json:"delivered"`
	// Deduped は重複として抑止された通知の数。
	Deduped int `json:"deduped"`
	// Recipients は通知先のユーザーID。
	Recipients []string `json:"recipients"`
}

// Notification は通知一覧APIが返す通知。
type Notification struct {
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
	// IsRead は既読状態。
	IsRead bool `json:"is_read"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
}

// EmitEvent はイベントを通知サービスに送信する。
func (c *Client) EmitEvent(ctx context.Context, e event.DomainEvent) (EmitResult, error) {
	var res EmitResult
	if err := c.PostJSON(ctx, eventsPath, e, &res); err != nil {
		return EmitResult{}, err
	}
	return res, nil
}

// ListNotifications は認証済みユーザーの通知一覧を取得する。unreadOnlyなら未読のみ。
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	path := notificationsPath
	if unreadOnly {
		path += "/unread"
	}
	var res []Notification
	if err := c.GetJSON(ctx, path, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// MarkAsRead は通知を既読にする。
func (c *Client) MarkAsRead(ctx context.Context, id string) error {
	return c.PutJSON(ctx, notificationsPath+"/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllAsRead は全通知を既読にする。
func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.PutJSON(ctx, notificationsPath+"/read-all", nil, nil)
}
