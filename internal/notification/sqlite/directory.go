package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/stagenotify/internal/notification"
)

// TheaterStaffForShow は公演の主催劇場で有効なマネージャーとスタッフを返す。
func (s *Store) TheaterStaffForShow(ctx context.Context, showID string) ([]notification.Recipient, error) {
	rs, err := s.queryRecipients(ctx, `
		SELECT tm.user_id
		FROM theater_memberships tm
		JOIN shows sh ON sh.theater_id = tm.theater_id
		WHERE sh.id = ?
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
		SELECT user_id
		FROM show_roles
		WHERE show_id = ? AND role = 'producer'
		ORDER BY created_at, user_id`, showID)
	if err != nil {
		return nil, fmt.Errorf("プロデューサーの取得に失敗: %w", err)
	}
	return rs, nil
}

// PerformerByID はプロフィールが存在する出演者を返す。
func (s *Store) PerformerByID(ctx context.Context, userID string) (notification.Recipient, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM profiles WHERE id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
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
		WHERE so.id = ? AND sc.status = 'accepted'
		ORDER BY sc.created_at, sc.user_id`, occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("確定出演者の取得に失敗: %w", err)
	}
	return rs, nil
}

func (s *Store) queryRecipients(ctx context.Context, query string, args ...any) ([]notification.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	rs := make([]notification.Recipient, 0)
	for rows.Next() {
		var r notification.Recipient
		if err := rows.Scan(&r.UserID); err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}
