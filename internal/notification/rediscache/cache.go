// Package rediscache は重複排除キーの確認結果をRedisにキャッシュするNotificationRepositoryを提供する。
//
// 一意性の保証は下位のストアが担う。Redisに障害があっても下位のストアだけで動作を続ける。
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nao1215/stagenotify/internal/notification"
	"github.com/nao1215/stagenotify/pkg/logger"
)

// keyPrefix はRedisキーの接頭辞。
const keyPrefix = "stagenotify:dedupe:"

// Client はキャッシュが使うRedisの操作。*redis.Clientが満たす。
type Client interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var _ notification.NotificationRepository = (*Repository)(nil)

// Repository は下位のNotificationRepositoryの前段に置くキャッシュ。
type Repository struct {
	// base は下位のストア。
	base notification.NotificationRepository
	// client はRedisクライアント。
	client Client
	// ttl はキャッシュの有効期間。
	ttl time.Duration
}

// New は新しいRepositoryを生成する。
func New(base notification.NotificationRepository, client Client, ttl time.Duration) *Repository {
	return &Repository{base: base, client: client, ttl: ttl}
}

// NewClient はaddrのRedisに接続するクライアントを生成する。
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Key はユーザーIDと重複排除キーに対応するRedisキーを返す。
func Key(userID, dedupeKey string) string {
	return keyPrefix + userID + ":" + dedupeKey
}

// HasDedupeKey はキャッシュにあればtrueを返し、なければ下位のストアに問い合わせる。
// 下位のストアで見つかった場合はキャッシュに記録する。
func (r *Repository) HasDedupeKey(ctx context.Context, userID, dedupeKey string) (bool, error) {
	key := Key(userID, dedupeKey)
	n, err := r.client.Exists(ctx, key).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		logger.L().Warn("重複排除キャッシュの参照に失敗", zap.String("key", key), zap.Error(err))
	}

	exists, err := r.base.HasDedupeKey(ctx, userID, dedupeKey)
	if err != nil {
		return false, err
	}
	if exists {
		r.remember(ctx, key)
	}
	return exists, nil
}

// Save は下位のストアに保存し、成功または重複の場合にキャッシュに記録する。
func (r *Repository) Save(ctx context.Context, record notification.NotificationRecord) error {
	err := r.base.Save(ctx, record)
	if err == nil || errors.Is(err, notification.ErrDuplicateDedupeKey) {
		r.remember(ctx, Key(record.UserID, record.DedupeKey))
	}
	return err
}

func (r *Repository) remember(ctx context.Context, key string) {
	if err := r.client.Set(ctx, key, 1, r.ttl).Err(); err != nil {
		logger.L().Warn("重複排除キャッシュの書き込みに失敗", zap.String("key", key), zap.Error(err))
	}
}
