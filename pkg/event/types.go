package event

// Kind はドメインイベントの種類を表す。
// 公演のライフサイクル、キャスティング、公演日程の変更を区別する。
type Kind string

const (
	// KindShowSubmittedForReview は公演が劇場の審査に提出されたことを表す。
	KindShowSubmittedForReview Kind = "show.submitted_for_review"
	// KindShowApproved は公演が劇場に承認されたことを表す。
	KindShowApproved Kind = "show.approved"
	// KindShowRejected は公演が劇場に却下されたことを表す。
	KindShowRejected Kind = "show.rejected"
	// KindShowCastingOpened は公演のキャスト募集が開始されたことを表す。
	KindShowCastingOpened Kind = "show.casting_opened"

	// KindCastInvited は出演者が公演に招待されたことを表す。
	KindCastInvited Kind = "cast.invited"
	// KindCastRequested は出演者が公演への出演を申請したことを表す。
	KindCastRequested Kind = "cast.requested"
	// KindCastAccepted は出演者が招待を承諾したことを表す。
	KindCastAccepted Kind = "cast.accepted"
	// KindCastDeclined は出演者が招待を辞退したことを表す。
	KindCastDeclined Kind = "cast.declined"
	// KindCastWithdrawn は出演者が出演を取り下げたことを表す。
	KindCastWithdrawn Kind = "cast.withdrawn"
	// KindCastRemovedByProducer はプロデューサーが出演者をキャストから外したことを表す。
	KindCastRemovedByProducer Kind = "cast.removed_by_producer"

	// KindOccurrenceTimeChanged は公演回の開始時刻が変更されたことを表す。
	KindOccurrenceTimeChanged Kind = "occurrence.time_changed"
	// KindOccurrenceCancelled は公演回が中止されたことを表す。
	KindOccurrenceCancelled Kind = "occurrence.cancelled"
	// KindOccurrenceReminder24h は公演回の24時間前リマインダーを表す。
	KindOccurrenceReminder24h Kind = "occurrence.reminder_24h"
)

// Kinds は既知のイベント種類を定義順に返す。
func Kinds() []Kind {
	return []Kind{
		KindShowSubmittedForReview,
		KindShowApproved,
		KindShowRejected,
		KindShowCastingOpened,
		KindCastInvited,
		KindCastRequested,
		KindCastAccepted,
		KindCastDeclined,
		KindCastWithdrawn,
		KindCastRemovedByProducer,
		KindOccurrenceTimeChanged,
		KindOccurrenceCancelled,
		KindOccurrenceReminder24h,
	}
}

// Known は既知のイベント種類かどうかを返す。
// 未知の種類もワイヤ上では受け付けるため、検証ではなく診断用途で使う。
func (k Kind) Known() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Payload はイベント固有の不透明なデータ。
type Payload map[string]any

// DomainEvent は通知対象となり得るドメイン上の事実を表す。
// 上流のプロデューサーとのワイヤ契約であり、生成後は変更しない。
type DomainEvent struct {
	// Kind はイベントの種類。
	Kind Kind `json:"kind"`
	// ShowID は関連する公演のID。
	ShowID string `json:"show_id,omitempty"`
	// TheaterID は関連する劇場のID。
	TheaterID string `json:"theater_id,omitempty"`
	// OccurrenceID は関連する公演回のID。
	OccurrenceID string `json:"occurrence_id,omitempty"`
	// PerformerID は関連する出演者のユーザーID。
	PerformerID string `json:"performer_id,omitempty"`
	// Payload はイベント固有のデータ。
	Payload Payload `json:"payload,omitempty"`
	// DedupeKey は呼び出し側が指定する重複排除キー。空の場合は指定なしとして自動生成される。
	// JSONではomitemptyのため空文字列と未設定を区別しない。
	DedupeKey string `json:"dedupe_key,omitempty"`
}

// PayloadCopy はPayloadの浅いコピーを返す。
// Payloadが未設定の場合は空のマップを返す。
func (e DomainEvent) PayloadCopy() Payload {
	copied := make(Payload, len(e.Payload))
	for k, v := range e.Payload {
		copied[k] = v
	}
	return copied
}
