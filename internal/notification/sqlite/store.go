// Package sqlite はSQLite上の通知ストアを提供する。
//
// 通知先の検索、通知レコードの保存と既読管理、メール送信キューを1つのデータベースで扱う。
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout は日時の保存形式。固定長にして文字列順と時刻順を一致させる。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	_ notification.RecipientDirectory     = (*Store)(nil)
	_ notification.NotificationRepository = (*Store)(nil)
	_ notification.EmailOutbox            = (*Store)(nil)
	_ notification.Inbox                  = (*Store)(nil)
)

// Store はSQLiteによる通知ストア。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// now は既読日時などの取得に使う。
	now func() time.Time
}

// Open はdsnのSQLiteデータベースを開き、マイグレーションを適用する。
// インメモリのDSNでは接続ごとに別のデータベースになるため、接続を1本に制限する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if IsMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// IsMemoryDSN はdsnがインメモリデータベースを指すかを返す。
func IsMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// New は開いた接続からStoreを生成し、マイグレーションを適用する。
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := migration.Run(ctx, db, migrations, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// DB は内部のデータベース接続を返す。
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("日時の解析に失敗: %q", v)
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
