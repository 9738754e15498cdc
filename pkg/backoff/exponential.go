// Package backoff はジッター付き指数バックオフを提供する。
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// MaxDelay はジッターを加える前の待ち時間の上限。
const MaxDelay = 30 * time.Second

// Delay はattempt回目の試行の前に待つ時間を返す。
// 1回目（attempt<=1）は待たない。2回目以降は base * 2^(attempt-1)（MaxDelayで頭打ち）に±50%のジッターを加える。
func Delay(attempt int, base time.Duration) time.Duration {
	if attempt <= 1 || base <= 0 {
		return 0
	}

	raw := MaxDelay
	if f := math.Pow(2, float64(attempt-1)) * float64(base); f < float64(MaxDelay) {
		raw = time.Duration(f)
	}
	jitterRange := float64(raw) * 0.5
	jitter := time.Duration(rand.Float64()*2*jitterRange - jitterRange)

	if d := raw + jitter; d > 0 {
		return d
	}
	return 0
}

// Retry はfnが成功するかmaxAttemptsに達するまで再実行する。
// 各試行の間はDelayで計算した時間だけ待つ。ctxがキャンセルされた場合はctx.Err()を返す。
// onRetryがnilでなければ、再試行の直前に失敗した試行番号とエラーを渡して呼び出す。
func Retry(ctx context.Context, maxAttempts int, base time.Duration, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if wait := Delay(attempt, base); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt < maxAttempts && onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return err
}
