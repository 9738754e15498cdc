package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nao1215/stagenotify/pkg/event"
)

var (
	// ErrDuplicateDedupeKey は同じユーザーと重複排除キーの通知が既に保存されていることを表す。
	// 永続化層の一意制約に違反したときにSaveが返す。
	ErrDuplicateDedupeKey = errors.New("重複排除キーが既に存在します")
	// ErrNotFound は指定された通知が存在しないことを表す。
	ErrNotFound = errors.New("通知が見つかりません")
)

// EntityType は通知が参照するエンティティの種類。
type EntityType string

const (
	// EntityShow は公演。
	EntityShow EntityType = "show"
	// EntityOccurrence は公演回。
	EntityOccurrence EntityType = "occurrence"
	// EntityCast はキャスティング。
	EntityCast EntityType = "cast"
)

// NotificationRecord はイベントと通知先1人の組ごとに作られる通知。
// ディスパッチャーは作成後に変更しない。
type NotificationRecord struct {
	// ID は通知の一意識別子。空の場合は保存時に採番する。
	ID string `json:"id"`
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
	// Kind は通知種別。
	Kind Kind `json:"kind"`
	// EventKind は元になったイベント種別。
	EventKind event.Kind `json:"event_kind"`
	// Payload はイベントペイロードのコピー。
	Payload event.Payload `json:"payload"`
	// DedupeKey は重複排除キー。
	DedupeKey string `json:"dedupe_key"`
	// Channels は配信チャネル。
	Channels []Channel `json:"channels"`
	// EntityType は参照先エンティティの種類。
	EntityType EntityType `json:"entity_type"`
	// EntityID は参照先エンティティのID。
	EntityID string `json:"entity_id,omitempty"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// ReadAt は既読にした日時。未読の場合はnil。
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// IsRead は既読かどうかを返す。
func (n NotificationRecord) IsRead() bool {
	return n.ReadAt != nil
}

// EmailOutboxJob はメール送信キューに積むジョブ。
type EmailOutboxJob struct {
	// UserID は送信先のユーザーID。
	UserID string `json:"user_id"`
	// Kind は通知種別。メールテンプレート名として使う。
	Kind Kind `json:"kind"`
	// Payload はイベントペイロードのコピー。
	Payload event.Payload `json:"payload"`
	// DedupeKey は通知レコードと同じ重複排除キー。
	DedupeKey string `json:"dedupe_key"`
}

// NotificationRepository は通知レコードの永続化。
type NotificationRepository interface {
	// HasDedupeKey は同じユーザーと重複排除キーの通知が存在するかを返す。
	HasDedupeKey(ctx context.Context, userID, dedupeKey string) (bool, error)
	// Save は通知レコードを保存する。一意制約違反はErrDuplicateDedupeKeyを返す。
	Save(ctx context.Context, record NotificationRecord) error
}

// EmailOutbox はメール送信キュー。送信そのものは外部のワーカーが行う。
type EmailOutbox interface {
	// QueueEmail はジョブをキューに積む。
	QueueEmail(ctx context.Context, job EmailOutboxJob) error
}

// Inbox はユーザー向けの通知一覧と既読管理。
type Inbox interface {
	// ListByUser はユーザーの通知を新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]NotificationRecord, error)
	// ListUnread はユーザーの未読通知を新しい順に返す。
	ListUnread(ctx context.Context, userID string) ([]NotificationRecord, error)
	// GetByID は通知を1件返す。存在しない場合はErrNotFound。
	GetByID(ctx context.Context, id string) (NotificationRecord, error)
	// MarkAsRead は通知を既読にする。存在しない場合はErrNotFound。
	MarkAsRead(ctx context.Context, id string) error
	// MarkAllAsRead はユーザーの全未読通知を既読にする。
	MarkAllAsRead(ctx context.Context, userID string) error
}

// EntityFor はイベントが参照するエンティティの種類とIDを返す。
func EntityFor(e event.DomainEvent) (EntityType, string) {
	kind := string(e.Kind)
	switch {
	case strings.HasPrefix(kind, "occurrence."):
		return EntityOccurrence, e.OccurrenceID
	case strings.HasPrefix(kind, "cast."):
		return EntityCast, e.ShowID
	default:
		return EntityShow, e.ShowID
	}
}
