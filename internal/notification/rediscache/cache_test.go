package rediscache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/event"
)

// fakeClient はメモリ上のClient。
type fakeClient struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{keys: make(map[string]time.Duration)}
}

func (f *fakeClient) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, _ any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.keys[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

// MockRepository はNotificationRepositoryのモック。
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) HasDedupeKey(ctx context.Context, userID, dedupeKey string) (bool, error) {
	args := m.Called(ctx, userID, dedupeKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, record notification.NotificationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func TestHasDedupeKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("キャッシュにあれば下位のストアに問い合わせない", func(t *testing.T) {
		t.Parallel()
		client := newFakeClient()
		client.keys[Key("u", "k")] = time.Hour
		base := new(MockRepository)
		r := New(base, client, time.Hour)

		ok, err := r.HasDedupeKey(ctx, "u", "k")
		require.NoError(t, err)
		assert.True(t, ok)
		base.AssertNotCalled(t, "HasDedupeKey", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("キャッシュになければ下位のストアの結果を記録する", func(t *testing.T) {
		t.Parallel()
		client := newFakeClient()
		base := new(MockRepository)
		base.On("HasDedupeKey", mock.Anything, "u", "k").Return(true, nil).Once()
		r := New(base, client, time.Minute)

		ok, err := r.HasDedupeKey(ctx, "u", "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, time.Minute, client.keys[Key("u", "k")])

		ok, err = r.HasDedupeKey(ctx, "u", "k")
		require.NoError(t, err)
		assert.True(t, ok)
		base.AssertExpectations(t)
	})

	t.Run("存在しないキーは記録しない", func(t *testing.T) {
		t.Parallel()
		client := newFakeClient()
		base := new(MockRepository)
		base.On("HasDedupeKey", mock.Anything, "u", "k").Return(false, nil)
		r := New(base, client, time.Minute)

		ok, err := r.HasDedupeKey(ctx, "u", "k")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, client.keys)
	})

	t.Run("Redis障害時は下位のストアで判定する", func(t *testing.T) {
		t.Parallel()
		client := newFakeClient()
		client.err = errors.New("connection refused")
		base := new(MockRepository)
		base.On("HasDedupeKey", mock.Anything, "u", "k").Return(true, nil)
		r := New(base, client, time.Minute)

		ok, err := r.HasDedupeKey(ctx, "u", "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("下位のストアのエラーを返す", func(t *testing.T) {
		t.Parallel()
		errStore := errors.New("store down")
		base := new(MockRepository)
		base.On("HasDedupeKey", mock.Anything, "u", "k").Return(false, errStore)
		r := New(base, newFakeClient(), time.Minute)

		_, err := r.HasDedupeKey(ctx, "u", "k")
		assert.ErrorIs(t, err, errStore)
	})
}

func TestSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	record := notification.NotificationRecord{UserID: "u", DedupeKey: "k"}

	tests := []struct {
		name       string
		saveErr    error
		wantCached bool
	}{
		{name: "保存成功で記録する", wantCached: true},
		{name: "重複でも記録する", saveErr: notification.ErrDuplicateDedupeKey, wantCached: true},
		{name: "その他のエラーでは記録しない", saveErr: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newFakeClient()
			base := new(MockRepository)
			base.On("Save", mock.Anything, record).Return(tt.saveErr)
			r := New(base, client, time.Minute)

			err := r.Save(ctx, record)
			if tt.saveErr != nil {
				assert.ErrorIs(t, err, tt.saveErr)
			} else {
				assert.NoError(t, err)
			}
			_, cached := client.keys[Key("u", "k")]
			assert.Equal(t, tt.wantCached, cached)
		})
	}
}

func TestWithDispatcher(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := notification.NewMemoryDirectory()
	dir.SetProducers("show-1", "producer-1")
	store := notification.NewMemoryNotificationRepository()
	client := newFakeClient()
	d, err := notification.NewDispatcher(notification.Dependencies{
		Recipients:    dir,
		Notifications: New(store, client, time.Hour),
	})
	require.NoError(t, err)

	e := event.New(event.KindShowApproved, nil, event.WithShow("show-1"))
	first, err := d.EmitEvent(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Delivered)

	second, err := d.EmitEvent(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Deduped)
	assert.Len(t, store.Records(), 1)
	assert.Len(t, client.keys, 1)
}
