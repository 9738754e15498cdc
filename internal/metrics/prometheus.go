// Package metrics は通知配信パイプラインのPrometheusメトリクスを提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

	// NotificationsDelivered は新規に保存された通知の件数。
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stagenotify_notifications_delivered_total",
			Help: "Total number of notification records created, by notification kind.",
		},
		[]string{"kind"},
	)

	// NotificationsDeduped は重複として抑止された通知の件数。
	NotificationsDeduped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stagenotify_notifications_deduped_total",
			Help: "Total number of notifications suppressed as duplicates, by notification kind.",
		},
		[]string{"kind"},
	)

	// EmailJobsQueued はメール送信キューに積まれたジョブの件数。
	EmailJobsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stagenotify_email_jobs_queued_total",
			Help: "Total number of email outbox jobs queued, by notification kind.",
		},
		[]string{"kind"},
	)

	// EmitFailures は失敗したイベント配信呼び出しの件数。
	EmitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stagenotify_emit_failures_total",
			Help: "Total number of event dispatch calls that returned an error, by event kind.",
		},
		[]string{"event_kind"},
	)

	// EmitDuration はイベント配信呼び出し1回あたりの所要時間。
	EmitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stagenotify_emit_duration_seconds",
			Help:    "Histogram of event dispatch duration in seconds, by event kind and success.",
			Buckets: durationBuckets,
		},
		[]string{"event_kind", "success"},
	)
)

// Handler はPrometheusのメトリクスエンドポイント用ハンドラを返す。
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEmit はイベント配信の所要時間を記録する。失敗時はEmitFailuresも加算する。
func ObserveEmit(eventKind string, success bool, start time.Time) {
	successStr := "false"
	if success {
		successStr = "true"
	} else {
		EmitFailures.WithLabelValues(eventKind).Inc()
	}
	EmitDuration.WithLabelValues(eventKind, successStr).Observe(time.Since(start).Seconds())
}
