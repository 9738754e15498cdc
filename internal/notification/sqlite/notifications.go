package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/event"
)

const notificationColumns = `id, user_id, type, event_type, entity_type, entity_id, payload, channels, dedupe_key, created_at, read_at`

// HasDedupeKey は同じユーザーと重複排除キーの通知が存在するかを返す。
func (s *Store) HasDedupeKey(ctx context.Context, userID, dedupeKey string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = ? AND dedupe_key = ?)`,
		userID, dedupeKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("重複排除キーの確認に失敗: %w", err)
	}
	return exists == 1, nil
}

// Save は通知を保存する。一意制約に当たった場合はnotification.ErrDuplicateDedupeKeyを返す。
func (s *Store) Save(ctx context.Context, record notification.NotificationRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	payload, err := marshalJSON(payloadOrEmpty(record.Payload))
	if err != nil {
		return fmt.Errorf("ペイロードのシリアライズに失敗: %w", err)
	}
	channels, err := marshalJSON(record.Channels)
	if err != nil {
		return fmt.Errorf("配信チャネルのシリアライズに失敗: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (user_id, dedupe_key) DO NOTHING`,
		record.ID, record.UserID, string(record.Kind), string(record.EventKind),
		string(record.EntityType), record.EntityID, payload, channels, record.DedupeKey,
		formatTime(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("通知の保存に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("通知の保存件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return notification.ErrDuplicateDedupeKey
	}
	return nil
}

// ListByUser はユーザーの通知を新しい順に返す。
func (s *Store) ListByUser(ctx context.Context, userID string) ([]notification.NotificationRecord, error) {
	records, err := s.queryNotifications(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return records, nil
}

// ListUnread はユーザーの未読通知を新しい順に返す。
func (s *Store) ListUnread(ctx context.Context, userID string) ([]notification.NotificationRecord, error) {
	records, err := s.queryNotifications(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND read_at IS NULL
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("未読通知一覧の取得に失敗: %w", err)
	}
	return records, nil
}

// GetByID は通知を1件返す。
func (s *Store) GetByID(ctx context.Context, id string) (notification.NotificationRecord, error) {
	records, err := s.queryNotifications(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	if err != nil {
		return notification.NotificationRecord{}, fmt.Errorf("通知の取得に失敗: %w", err)
	}
	if len(records) == 0 {
		return notification.NotificationRecord{}, notification.ErrNotFound
	}
	return records[0], nil
}

// MarkAsRead は通知を既読にする。既読済みの通知の既読日時は変えない。
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ?`,
		formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("通知の既読処理に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("通知の既読処理に失敗: %w", err)
	}
	if n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// MarkAllAsRead はユーザーの全未読通知を既読にする。
func (s *Store) MarkAllAsRead(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`,
		formatTime(s.now()), userID,
	); err != nil {
		return fmt.Errorf("全通知の既読処理に失敗: %w", err)
	}
	return nil
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]notification.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]notification.NotificationRecord, 0)
	for rows.Next() {
		r, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanNotification(rows *sql.Rows) (notification.NotificationRecord, error) {
	var (
		r                           notification.NotificationRecord
		kind, eventKind, entityType string
		payload, channels           string
		createdAt                   string
		readAt                      sql.NullString
	)
	if err := rows.Scan(&r.ID, &r.UserID, &kind, &eventKind, &entityType, &r.EntityID,
		&payload, &channels, &r.DedupeKey, &createdAt, &readAt); err != nil {
		return r, err
	}
	r.Kind = notification.Kind(kind)
	r.EventKind = event.Kind(eventKind)
	r.EntityType = notification.EntityType(entityType)

	if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
		return r, fmt.Errorf("ペイロードの解析に失敗: %w", err)
	}
	if err := json.Unmarshal([]byte(channels), &r.Channels); err != nil {
		return r, fmt.Errorf("配信チャネルの解析に失敗: %w", err)
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return r, err
	}
	r.CreatedAt = t
	if readAt.Valid {
		t, err := parseTime(readAt.String)
		if err != nil {
			return r, err
		}
		r.ReadAt = &t
	}
	return r, nil
}

func payloadOrEmpty(p event.Payload) event.Payload {
	if p == nil {
		return event.Payload{}
	}
	return p
}
