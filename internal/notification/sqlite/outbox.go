package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nao1215/stagenotify/internal/notification"
)

// OutboxStatus はメール送信キューのジョブ状態。
type OutboxStatus string

const (
	// OutboxQueued は送信待ち。
	OutboxQueued OutboxStatus = "queued"
	// OutboxSent は送信済み。
	OutboxSent OutboxStatus = "sent"
	// OutboxFailed は送信失敗。
	OutboxFailed OutboxStatus = "failed"
)

// QueueEmail はジョブを送信待ちで積む。同じユーザーと重複排除キーのジョブが既にあれば何もしない。
func (s *Store) QueueEmail(ctx context.Context, job notification.EmailOutboxJob) error {
	payload, err := marshalJSON(payloadOrEmpty(job.Payload))
	if err != nil {
		return fmt.Errorf("ペイロードのシリアライズに失敗: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO email_outbox (id, user_id, template, payload, dedupe_key, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, dedupe_key) DO NOTHING`,
		uuid.New().String(), job.UserID, string(job.Kind), payload, job.DedupeKey,
		string(OutboxQueued), formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("メールジョブの登録に失敗: %w", err)
	}
	return nil
}

// CountOutbox は指定した状態のジョブ数を返す。
func (s *Store) CountOutbox(ctx context.Context, status OutboxStatus) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_outbox WHERE status = ?`, string(status),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("メールジョブ数の取得に失敗: %w", err)
	}
	return n, nil
}
