// Package postgres はPostgreSQL上の通知ストアを提供する。
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/event"
)

//go:embed schema.sql
var schema string

// uniqueViolation は一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

var (
	_ notification.RecipientDirectory     = (*Store)(nil)
	_ notification.NotificationRepository = (*Store)(nil)
	_ notification.EmailOutbox            = (*Store)(nil)
	_ notification.Inbox                  = (*Store)(nil)
)

// Store はPostgreSQLによる通知ストア。
type Store struct {
	// pool はコネクションプール。
	pool *pgxpool.Pool
}

// Open はdsnに接続し、スキーマを適用したStoreを返す。
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}
	s := NewStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStore は既存のプールからStoreを生成する。
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema はテーブルとインデックスを作成する。
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close はプールを閉じる。
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// TheaterStaffForShow は公演の主催劇場で有効なマネージャーとスタッフを返す。
func (s *Store) TheaterStaffForShow(ctx context.Context, showID string) ([]notification.Recipient, error) {
	rs, err := s.queryRecipients(ctx, `
		SELECT tm.user_id
		FROM theater_memberships tm
		JOIN shows sh ON sh.theater_id = tm.theater_id
		WHERE sh.id = $1
		  AND tm.role IN ('manager', 'staff')
		  AND tm.status = 'active'
		ORDER BY tm.created_at, tm.user_id`, showID)
	if err != nil {
		return nil, fmt.Errorf("劇場スタッフの取得に失敗: %w", err)
	}
	return rs, nil
}

// ShowProducers は公演のプロデューサーを返す。
func (s *Store) ShowProducers(ctx context.Context, showID string) ([]notification.Recipient, error) {
	rs, err := s.queryRecipients(ctx, `
		SELECT user_id FROM show_roles
		WHERE show_id = $1 AND role = 'producer'
		ORDER BY created_at, user_id`, showID)
	if err != nil {
		return nil, fmt.Errorf("プロデューサーの取得に失敗: %w", err)
	}
	return rs, nil
}

// PerformerByID はプロフィールが存在する出演者を返す。
func (s *Store) PerformerByID(ctx context.Context, userID string) (notification.Recipient, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM profiles WHERE id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return notification.Recipient{}, false, nil
	}
	if err != nil {
		return notification.Recipient{}, false, fmt.Errorf("出演者の取得に失敗: %w", err)
	}
	return notification.Recipient{UserID: id}, true, nil
}

// AcceptedPerformersForOccurrence は公演回の公演に出演が確定している出演者を返す。
func (s *Store) AcceptedPerformersForOccurrence(ctx context.Context, occurrenceID string) ([]notification.Recipient, error) {
	rs, err := s.queryRecipients(ctx, `
		SELECT sc.user_id
		FROM show_cast sc
		JOIN show_occurrences so ON so.show_id = sc.show_id
		WHERE so.id = $1 AND sc.status = 'accepted'
		ORDER BY sc.created_at, sc.user_id`, occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("確定出演者の取得に失敗: %w", err)
	}
	return rs, nil
}

func (s *Store) queryRecipients(ctx context.Context, query string, args ...any) ([]notification.Recipient, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	rs := make([]notification.Recipient, 0, len(userIDs))
	for _, id := range userIDs {
		rs = append(rs, notification.Recipient{UserID: id})
	}
	return rs, nil
}

// HasDedupeKey は同じユーザーと重複排除キーの通知が存在するかを返す。
func (s *Store) HasDedupeKey(ctx context.Context, userID, dedupeKey string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = $1 AND dedupe_key = $2)`,
		userID, dedupeKey,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("重複排除キーの確認に失敗: %w", err)
	}
	return exists, nil
}

// Save は通知を保存する。一意制約違反はnotification.ErrDuplicateDedupeKeyを返す。
func (s *Store) Save(ctx context.Context, record notification.NotificationRecord) error {
	id := uuid.New()
	if record.ID != "" {
		parsed, err := uuid.Parse(record.ID)
		if err != nil {
			return fmt.Errorf("通知IDが不正: %w", err)
		}
		id = parsed
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, user_id, type, event_type, entity_type, entity_id, payload, channels, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, record.UserID, string(record.Kind), string(record.EventKind),
		string(record.EntityType), record.EntityID, payloadOrEmpty(record.Payload),
		channelStrings(record.Channels), record.DedupeKey, record.CreatedAt,
	)
	if isUniqueViolation(err) {
		return notification.ErrDuplicateDedupeKey
	}
	if err != nil {
		return fmt.Errorf("通知の保存に失敗: %w", err)
	}
	return nil
}

// QueueEmail はジョブを送信待ちで積む。同じユーザーと重複排除キーのジョブが既にあれば何もしない。
func (s *Store) QueueEmail(ctx context.Context, job notification.EmailOutboxJob) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO email_outbox (id, user_id, template, payload, dedupe_key, status)
		VALUES ($1, $2, $3, $4, $5, 'queued')
		ON CONFLICT (user_id, dedupe_key) DO NOTHING`,
		uuid.New(), job.UserID, string(job.Kind), payloadOrEmpty(job.Payload), job.DedupeKey,
	); err != nil {
		return fmt.Errorf("メールジョブの登録に失敗: %w", err)
	}
	return nil
}

const selectNotifications = `
	SELECT id::text, user_id, type, event_type, entity_type, entity_id, payload, channels, dedupe_key, created_at, read_at
	FROM notifications`

// ListByUser はユーザーの通知を新しい順に返す。
func (s *Store) ListByUser(ctx context.Context, userID string) ([]notification.NotificationRecord, error) {
	records, err := s.queryNotifications(ctx,
		selectNotifications+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return records, nil
}

// ListUnread はユーザーの未読通知を新しい順に返す。
func (s *Store) ListUnread(ctx context.Context, userID string) ([]notification.NotificationRecord, error) {
	records, err := s.queryNotifications(ctx,
		selectNotifications+` WHERE user_id = $1 AND read_at IS NULL ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("未読通知一覧の取得に失敗: %w", err)
	}
	return records, nil
}

// GetByID は通知を1件返す。
func (s *Store) GetByID(ctx context.Context, id string) (notification.NotificationRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return notification.NotificationRecord{}, notification.ErrNotFound
	}
	records, err := s.queryNotifications(ctx, selectNotifications+` WHERE id = $1`, uid)
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
	uid, err := uuid.Parse(id)
	if err != nil {
		return notification.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, now()) WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("通知の既読処理に失敗: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// MarkAllAsRead はユーザーの全未読通知を既読にする。
func (s *Store) MarkAllAsRead(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = now() WHERE user_id = $1 AND read_at IS NULL`, userID,
	); err != nil {
		return fmt.Errorf("全通知の既読処理に失敗: %w", err)
	}
	return nil
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]notification.NotificationRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.NotificationRecord, error) {
		var (
			r                           notification.NotificationRecord
			kind, eventKind, entityType string
			payload                     map[string]any
			channels                    []string
		)
		if err := row.Scan(&r.ID, &r.UserID, &kind, &eventKind, &entityType, &r.EntityID,
			&payload, &channels, &r.DedupeKey, &r.CreatedAt, &r.ReadAt); err != nil {
			return r, err
		}
		r.Kind = notification.Kind(kind)
		r.EventKind = event.Kind(eventKind)
		r.EntityType = notification.EntityType(entityType)
		r.Payload = event.Payload(payload)
		r.Channels = make([]notification.Channel, 0, len(channels))
		for _, c := range channels {
			r.Channels = append(r.Channels, notification.Channel(c))
		}
		return r, nil
	})
}

// isUniqueViolation はerrが一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func payloadOrEmpty(p event.Payload) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}

func channelStrings(channels []notification.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, string(c))
	}
	return out
}
