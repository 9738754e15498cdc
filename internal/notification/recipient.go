package notification

import (
	"context"

	"github.com/nao1215/stagenotify/pkg/event"
)

// Recipient は通知先のユーザー。UserIDのみで同一性を判定する。
type Recipient struct {
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
}

// RecipientDirectory は通知先の解決に使う検索処理。
// 該当者がいない場合は空のスライスを返し、エラーにはしない。
type RecipientDirectory interface {
	// TheaterStaffForShow は公演が属する劇場の有効なマネージャーとスタッフを返す。
	TheaterStaffForShow(ctx context.Context, showID string) ([]Recipient, error)
	// ShowProducers は公演のプロデューサーを返す。
	ShowProducers(ctx context.Context, showID string) ([]Recipient, error)
	// PerformerByID は出演者を1人返す。存在しない場合okはfalse。
	PerformerByID(ctx context.Context, userID string) (r Recipient, ok bool, err error)
	// AcceptedPerformersForOccurrence は公演回に出演が確定している出演者を返す。
	AcceptedPerformersForOccurrence(ctx context.Context, occurrenceID string) ([]Recipient, error)
}

// MergeRecipients はグループを引数順に連結し、UserIDの重複を除く。
// 最初に現れたものを残し、順序は保たれる。
func MergeRecipients(groups ...[]Recipient) []Recipient {
	seen := make(map[string]struct{})
	merged := make([]Recipient, 0)
	for _, group := range groups {
		for _, r := range group {
			if _, ok := seen[r.UserID]; ok {
				continue
			}
			seen[r.UserID] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}

// ResolveRecipients はイベントの通知先を重複なしの順序付きリストで返す。
// 必要な相関IDがない場合や未知のイベント種別では空のリストを返す。
// 検索処理のエラーはそのまま返す。
func ResolveRecipients(ctx context.Context, e event.DomainEvent, dir RecipientDirectory) ([]Recipient, error) {
	switch e.Kind {
	case event.KindShowSubmittedForReview:
		if e.ShowID == "" {
			return []Recipient{}, nil
		}
		staff, err := dir.TheaterStaffForShow(ctx, e.ShowID)
		if err != nil {
			return nil, err
		}
		return MergeRecipients(staff), nil

	case event.KindShowApproved,
		event.KindShowRejected,
		event.KindCastRequested,
		event.KindCastAccepted,
		event.KindCastDeclined,
		event.KindCastWithdrawn:
		return showProducers(ctx, e, dir)

	case event.KindCastInvited, event.KindCastRemovedByProducer:
		if e.PerformerID == "" {
			return []Recipient{}, nil
		}
		performer, ok, err := dir.PerformerByID(ctx, e.PerformerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []Recipient{}, nil
		}
		return []Recipient{performer}, nil

	case event.KindOccurrenceTimeChanged,
		event.KindOccurrenceCancelled,
		event.KindOccurrenceReminder24h:
		var producers, performers []Recipient
		if e.ShowID != "" {
			var err error
			if producers, err = dir.ShowProducers(ctx, e.ShowID); err != nil {
				return nil, err
			}
		}
		if e.OccurrenceID != "" {
			var err error
			if performers, err = dir.AcceptedPerformersForOccurrence(ctx, e.OccurrenceID); err != nil {
				return nil, err
			}
		}
		return MergeRecipients(producers, performers), nil

	case event.KindShowCastingOpened:
		// キャスティング募集の対象者を広げるまではプロデューサーのみに通知する。
		return showProducers(ctx, e, dir)

	default:
		return []Recipient{}, nil
	}
}

// showProducers は公演IDがあればプロデューサーを返す。
func showProducers(ctx context.Context, e event.DomainEvent, dir RecipientDirectory) ([]Recipient, error) {
	if e.ShowID == "" {
		return []Recipient{}, nil
	}
	producers, err := dir.ShowProducers(ctx, e.ShowID)
	if err != nil {
		return nil, err
	}
	return MergeRecipients(producers), nil
}
