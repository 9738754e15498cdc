package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nao1215/stagenotify/internal/notification"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "一意制約違反", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "ラップされた一意制約違反", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "外部キー違反", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "その他のエラー", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChannelStrings(t *testing.T) {
	t.Parallel()

	got := channelStrings(notification.ChannelsFor(notification.KindShowReminder))
	if len(got) != 2 || got[0] != "in-app" || got[1] != "email" {
		t.Errorf("channelStrings() = %v", got)
	}
	if got := payloadOrEmpty(nil); got == nil {
		t.Error("payloadOrEmpty(nil) がnilを返した")
	}
}
