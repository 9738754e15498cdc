package notification

import (
	"slices"

	"github.com/nao1215/stagenotify/pkg/event"
)

// Kind はユーザーに見える通知の種別。配信チャネルとは独立している。
type Kind string

const (
	// KindInvitedToShow は公演への出演招待の通知。
	KindInvitedToShow Kind = "invited_to_show"
	// KindShowTimeChanged は公演日時の変更通知。
	KindShowTimeChanged Kind = "show_time_changed"
	// KindShowReminder は公演前日のリマインダー。
	KindShowReminder Kind = "show_reminder"
	// KindShowApproved は公演の承認通知。
	KindShowApproved Kind = "show_approved"
	// KindShowRejected は公演の却下通知。
	KindShowRejected Kind = "show_rejected"
	// KindShowSubmitted は公演がレビューに提出されたことの通知。
	KindShowSubmitted Kind = "show_submitted"
	// KindCastRequestReceived は出演希望を受け取ったことの通知。
	KindCastRequestReceived Kind = "cast_request_received"
	// KindCastResponseReceived は出演招待への承諾を受け取ったことの通知。
	KindCastResponseReceived Kind = "cast_response_received"
	// KindCastDeclined は出演辞退の通知。
	KindCastDeclined Kind = "cast_declined"
	// KindCastWithdrawn は出演取り下げの通知。
	KindCastWithdrawn Kind = "cast_withdrawn"
	// KindCastRemoved はプロデューサーによるキャスト解除の通知。
	KindCastRemoved Kind = "cast_removed"
	// KindNewCastingShow はキャスティング募集開始の通知。
	KindNewCastingShow Kind = "new_casting_show"
	// KindShowCancelled は公演中止の通知。
	KindShowCancelled Kind = "show_cancelled"
	// KindInAppGeneric は対応表にないイベントに使う汎用の通知種別。
	KindInAppGeneric Kind = "in_app_generic"
)

// Channel は通知の配信チャネル。
type Channel string

const (
	// ChannelInApp はアプリ内通知。
	ChannelInApp Channel = "in-app"
	// ChannelEmail はメール通知。
	ChannelEmail Channel = "email"
)

// kindByEvent はイベント種別から通知種別への対応表。初期化後は読み取り専用。
var kindByEvent = map[event.Kind]Kind{
	event.KindShowSubmittedForReview: KindShowSubmitted,
	event.KindShowApproved:           KindShowApproved,
	event.KindShowRejected:           KindShowRejected,
	event.KindCastInvited:            KindInvitedToShow,
	event.KindCastRequested:          KindCastRequestReceived,
	event.KindCastAccepted:           KindCastResponseReceived,
	event.KindCastDeclined:           KindCastDeclined,
	event.KindCastWithdrawn:          KindCastWithdrawn,
	event.KindCastRemovedByProducer:  KindCastRemoved,
	event.KindOccurrenceTimeChanged:  KindShowTimeChanged,
	event.KindOccurrenceCancelled:    KindShowCancelled,
	event.KindOccurrenceReminder24h:  KindShowReminder,
	event.KindShowCastingOpened:      KindNewCastingShow,
}

// emailKinds はアプリ内通知に加えてメールでも配信する通知種別。
var emailKinds = map[Kind]struct{}{
	KindInvitedToShow:   {},
	KindShowTimeChanged: {},
	KindShowReminder:    {},
	KindShowApproved:    {},
	KindShowRejected:    {},
}

// Classify はイベント種別に対応する通知種別を返す。
// 対応表にない種別はKindInAppGenericになる。
func Classify(kind event.Kind) Kind {
	if k, ok := kindByEvent[kind]; ok {
		return k
	}
	return KindInAppGeneric
}

// ChannelsFor は通知種別の配信チャネルを返す。常にChannelInAppを含む。
// 戻り値は呼び出しごとに新しいスライス。
func ChannelsFor(kind Kind) []Channel {
	if _, ok := emailKinds[kind]; ok {
		return []Channel{ChannelInApp, ChannelEmail}
	}
	return []Channel{ChannelInApp}
}

// HasChannel はchannelsにchが含まれるかを返す。
func HasChannel(channels []Channel, ch Channel) bool {
	return slices.Contains(channels, ch)
}
