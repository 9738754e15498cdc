package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nao1215/stagenotify/internal/metrics"
	"github.com/nao1215/stagenotify/pkg/event"
	"github.com/nao1215/stagenotify/pkg/logger"
)

const tracerName = "github.com/nao1215/stagenotify/internal/notification"

// ErrMissingDependency は必須の依存が注入されていないことを表す。
var ErrMissingDependency = errors.New("必須の依存が設定されていません")

// Dependencies はディスパッチャーに注入する依存。
type Dependencies struct {
	// Recipients は通知先の検索処理。必須。
	Recipients RecipientDirectory
	// Notifications は通知レコードの永続化。必須。
	Notifications NotificationRepository
	// EmailOutbox はメール送信キュー。nilの場合はメールジョブを積まない。
	EmailOutbox EmailOutbox
}

// Result はEmitEvent1回分の集計。
type Result struct {
	// Delivered は新たに保存した通知の数。
	Delivered int `json:"delivered"`
	// Deduped は重複として抑止した通知の数。
	Deduped int `json:"deduped"`
	// Recipients は解決した通知先のユーザーID。重複として抑止したユーザーも含む。
	Recipients []string `json:"recipients"`
}

// Dispatcher はドメインイベントを通知先ごとの通知レコードに変換して保存する。
// 内部に可変状態を持たないため、複数のゴルーチンから同時に使える。
type Dispatcher struct {
	// deps は注入された依存。
	deps Dependencies
	// tracer はスパンの生成に使う。
	tracer trace.Tracer
	// now は作成日時の取得に使う。
	now func() time.Time
}

// NewDispatcher は新しいディスパッチャーを生成する。
func NewDispatcher(deps Dependencies) (*Dispatcher, error) {
	if deps.Recipients == nil || deps.Notifications == nil {
		return nil, ErrMissingDependency
	}
	return &Dispatcher{
		deps:   deps,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}, nil
}

// EmitEvent はイベントを分類し、通知先を解決し、通知先ごとに1度だけ通知を保存する。
//
// 通知先は1人ずつ順に処理する。重複排除キーが既にあれば抑止し、なければ保存する。
// メール対象の通知種別でメール送信キューが設定されていれば同じキーでジョブを積む。
// 依存のエラーはそのまま返し、残りの通知先の処理を中断する。保存済みの通知は取り消さない。
// 同時実行で確認をすり抜けた重複もストアの一意制約がErrDuplicateDedupeKeyとして返し、そのまま呼び出し元に伝える。
// 重複排除キーはイベントから決まるため、失敗後に同じイベントで再実行すれば未配信の通知先だけが配信される。
func (d *Dispatcher) EmitEvent(ctx context.Context, e event.DomainEvent) (result Result, err error) {
	start := time.Now()
	kind := Classify(e.Kind)
	channels := ChannelsFor(kind)

	ctx, span := d.tracer.Start(ctx, "notification.EmitEvent", trace.WithAttributes(
		attribute.String("event.kind", string(e.Kind)),
		attribute.String("notification.kind", string(kind)),
	))
	log := logger.L().With(
		zap.String("eventKind", string(e.Kind)),
		zap.String("notificationKind", string(kind)),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
	)
	defer func() {
		metrics.ObserveEmit(string(e.Kind), err == nil, start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("イベントの配信に失敗", zap.Error(err), zap.Int("delivered", result.Delivered))
		} else {
			span.SetAttributes(
				attribute.Int("notification.delivered", result.Delivered),
				attribute.Int("notification.deduped", result.Deduped),
			)
			log.Info("イベントを配信しました",
				zap.Int("delivered", result.Delivered),
				zap.Int("deduped", result.Deduped),
			)
		}
		span.End()
	}()

	recipients, err := ResolveRecipients(ctx, e, d.deps.Recipients)
	if err != nil {
		return Result{Recipients: []string{}}, err
	}

	result.Recipients = make([]string, 0, len(recipients))
	for _, r := range recipients {
		result.Recipients = append(result.Recipients, r.UserID)
	}

	entityType, entityID := EntityFor(e)
	for _, r := range recipients {
		dedupeKey := BuildDedupeKey(e, kind, r.UserID)

		exists, err := d.deps.Notifications.HasDedupeKey(ctx, r.UserID, dedupeKey)
		if err != nil {
			return result, err
		}
		if exists {
			result.Deduped++
			metrics.NotificationsDeduped.WithLabelValues(string(kind)).Inc()
			continue
		}

		record := NotificationRecord{
			UserID:     r.UserID,
			Kind:       kind,
			EventKind:  e.Kind,
			Payload:    e.PayloadCopy(),
			DedupeKey:  dedupeKey,
			Channels:   ChannelsFor(kind),
			EntityType: entityType,
			EntityID:   entityID,
			CreatedAt:  d.now().UTC(),
		}
		if err := d.deps.Notifications.Save(ctx, record); err != nil {
			return result, err
		}

		if HasChannel(channels, ChannelEmail) && d.deps.EmailOutbox != nil {
			if err := d.deps.EmailOutbox.QueueEmail(ctx, EmailOutboxJob{
				UserID:    r.UserID,
				Kind:      kind,
				Payload:   record.Payload,
				DedupeKey: dedupeKey,
			}); err != nil {
				return result, err
			}
			metrics.EmailJobsQueued.WithLabelValues(string(kind)).Inc()
		}

		result.Delivered++
		metrics.NotificationsDelivered.WithLabelValues(string(kind)).Inc()
	}

	return result, nil
}

// BuildDedupeKey は通知先ユーザー1人分の重複排除キーを返す。
// イベントにキーの指定があればそれを使い、なければイベント種別・公演ID・公演回ID・出演者ID・通知種別の
// 空でない値を":"で連結する。どちらの場合も末尾に":user:<ユーザーID>"を付ける。
// 空文字列のキー指定は指定なしとみなす。ペイロードはキーに含めない。
func BuildDedupeKey(e event.DomainEvent, kind Kind, userID string) string {
	base := e.DedupeKey
	if base == "" {
		parts := make([]string, 0, 5)
		for _, p := range []string{string(e.Kind), e.ShowID, e.OccurrenceID, e.PerformerID, string(kind)} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		base = strings.Join(parts, ":")
	}
	return base + ":user:" + userID
}
