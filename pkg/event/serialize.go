package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingKind はイベント種類が空の場合に返されるエラー。
var ErrMissingKind = errors.New("イベント種類が指定されていません")

// New は新しいドメインイベントを生成する。
// payloadはコピーして保持するため、呼び出し側が後から変更しても影響しない。
func New(kind Kind, payload Payload, opts ...Option) DomainEvent {
	e := DomainEvent{Kind: kind}
	if payload != nil {
		e.Payload = DomainEvent{Payload: payload}.PayloadCopy()
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Option はDomainEventの任意項目を設定する関数。
type Option func(*DomainEvent)

// WithShow は公演IDを設定する。
func WithShow(showID string) Option {
	return func(e *DomainEvent) { e.ShowID = showID }
}

// WithTheater は劇場IDを設定する。
func WithTheater(theaterID string) Option {
	return func(e *DomainEvent) { e.TheaterID = theaterID }
}

// WithOccurrence は公演回IDを設定する。
func WithOccurrence(occurrenceID string) Option {
	return func(e *DomainEvent) { e.OccurrenceID = occurrenceID }
}

// WithPerformer は出演者のユーザーIDを設定する。
func WithPerformer(performerID string) Option {
	return func(e *DomainEvent) { e.PerformerID = performerID }
}

// WithDedupeKey は重複排除キーを明示的に設定する。空文字列は指定なしと同じ。
func WithDedupeKey(key string) Option {
	return func(e *DomainEvent) { e.DedupeKey = key }
}

// Decode はJSONからドメインイベントをデシリアライズする。
// 未知のイベント種類はエラーにしない。種類が空の場合のみErrMissingKindを返す。
func Decode(data []byte) (DomainEvent, error) {
	var e DomainEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return DomainEvent{}, fmt.Errorf("イベントのデシリアライズに失敗: %w", err)
	}
	if e.Kind == "" {
		return DomainEvent{}, ErrMissingKind
	}
	return e, nil
}

// DecodeList はJSON配列または単一オブジェクトからドメインイベントの一覧をデシリアライズする。
func DecodeList(data []byte) ([]DomainEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		e, err := Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return []DomainEvent{e}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("イベント一覧のデシリアライズに失敗: %w", err)
	}

	events := make([]DomainEvent, 0, len(raws))
	for i, raw := range raws {
		e, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%d番目のイベント: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Encode はドメインイベントをJSONにシリアライズする。
func Encode(e DomainEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return data, nil
}
