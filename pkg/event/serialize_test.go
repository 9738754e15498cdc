package event

import (
	"errors"
	"testing"
)

// TestNew はNew関数でイベントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("オプションで相関IDが設定されること", func(t *testing.T) {
		t.Parallel()

		ev := New(KindOccurrenceReminder24h, Payload{"starts_at": "2026-02-01T20:00:00Z"},
			WithShow("show-99"),
			WithOccurrence("occ-99"),
			WithTheater("theater-1"),
			WithPerformer("performer-1"),
			WithDedupeKey("custom"),
		)

		if ev.Kind != KindOccurrenceReminder24h {
			t.Errorf("Kind = %q, want %q", ev.Kind, KindOccurrenceReminder24h)
		}
		if ev.ShowID != "show-99" {
			t.Errorf("ShowID = %q, want %q", ev.ShowID, "show-99")
		}
		if ev.OccurrenceID != "occ-99" {
			t.Errorf("OccurrenceID = %q, want %q", ev.OccurrenceID, "occ-99")
		}
		if ev.TheaterID != "theater-1" {
			t.Errorf("TheaterID = %q, want %q", ev.TheaterID, "theater-1")
		}
		if ev.PerformerID != "performer-1" {
			t.Errorf("PerformerID = %q, want %q", ev.PerformerID, "performer-1")
		}
		if ev.DedupeKey != "custom" {
			t.Errorf("DedupeKey = %q, want %q", ev.DedupeKey, "custom")
		}
	})

	t.Run("元のpayloadを変更してもイベントに影響しないこと", func(t *testing.T) {
		t.Parallel()

		payload := Payload{"title": "Armando Night"}
		ev := New(KindShowSubmittedForReview, payload, WithShow("show-1"))
		payload["title"] = "changed"

		if ev.Payload["title"] != "Armando Night" {
			t.Errorf("Payload[title] = %v, want %q", ev.Payload["title"], "Armando Night")
		}
	})

	t.Run("payloadがnilの場合はnilのままであること", func(t *testing.T) {
		t.Parallel()

		ev := New(KindCastInvited, nil)
		if ev.Payload != nil {
			t.Errorf("Payload = %v, want nil", ev.Payload)
		}
		if got := ev.PayloadCopy(); got == nil || len(got) != 0 {
			t.Errorf("PayloadCopy() = %v, want 空のマップ", got)
		}
	})
}

// TestDecode はDecode関数を検証する。
func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("JSONからイベントを復元できること", func(t *testing.T) {
		t.Parallel()

		ev, err := Decode([]byte(`{"kind":"cast.invited","performer_id":"performer-1","show_id":"show-444","payload":{"role":"lead"}}`))
		if err != nil {
			t.Fatalf("Decode()でエラーが発生: %v", err)
		}
		if ev.Kind != KindCastInvited {
			t.Errorf("Kind = %q, want %q", ev.Kind, KindCastInvited)
		}
		if ev.PerformerID != "performer-1" {
			t.Errorf("PerformerID = %q, want %q", ev.PerformerID, "performer-1")
		}
		if ev.Payload["role"] != "lead" {
			t.Errorf("Payload[role] = %v, want lead", ev.Payload["role"])
		}
	})

	t.Run("未知のイベント種類も受け付けること", func(t *testing.T) {
		t.Parallel()

		ev, err := Decode([]byte(`{"kind":"venue.renamed"}`))
		if err != nil {
			t.Fatalf("Decode()でエラーが発生: %v", err)
		}
		if ev.Kind.Known() {
			t.Errorf("Known() = true, want false")
		}
	})

	t.Run("種類が空の場合はErrMissingKindを返すこと", func(t *testing.T) {
		t.Parallel()

		_, err := Decode([]byte(`{"show_id":"show-1"}`))
		if !errors.Is(err, ErrMissingKind) {
			t.Errorf("err = %v, want ErrMissingKind", err)
		}
	})

	t.Run("不正なJSONの場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := Decode([]byte(`{invalid`)); err == nil {
			t.Error("エラーが返されなかった")
		}
	})
}

// TestDecodeList はDecodeList関数を検証する。
func TestDecodeList(t *testing.T) {
	t.Parallel()

	t.Run("JSON配列から複数のイベントを復元できること", func(t *testing.T) {
		t.Parallel()

		events, err := DecodeList([]byte(`[{"kind":"show.approved","show_id":"s1"},{"kind":"show.rejected","show_id":"s2"}]`))
		if err != nil {
			t.Fatalf("DecodeList()でエラーが発生: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("len = %d, want 2", len(events))
		}
		if events[1].Kind != KindShowRejected {
			t.Errorf("events[1].Kind = %q, want %q", events[1].Kind, KindShowRejected)
		}
	})

	t.Run("単一オブジェクトも1件の一覧として扱うこと", func(t *testing.T) {
		t.Parallel()

		events, err := DecodeList([]byte("  {\"kind\":\"show.approved\"}\n"))
		if err != nil {
			t.Fatalf("DecodeList()でエラーが発生: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("len = %d, want 1", len(events))
		}
	})

	t.Run("配列中に種類が空の要素があればエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeList([]byte(`[{"kind":"show.approved"},{}]`))
		if !errors.Is(err, ErrMissingKind) {
			t.Errorf("err = %v, want ErrMissingKind", err)
		}
	})
}

// TestEncode はEncodeとDecodeの往復で相関IDが保たれることを検証する。
func TestEncode(t *testing.T) {
	t.Parallel()

	ev := New(KindOccurrenceCancelled, nil, WithOccurrence("occ-1"))
	data, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode()でエラーが発生: %v", err)
	}
	if string(data) != `{"kind":"occurrence.cancelled","occurrence_id":"occ-1"}` {
		t.Errorf("Encode() = %s", data)
	}
}

// TestKinds は既知のイベント種類の一覧を検証する。
func TestKinds(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	if len(kinds) != 13 {
		t.Fatalf("len(Kinds()) = %d, want 13", len(kinds))
	}
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			t.Errorf("重複した種類: %q", k)
		}
		seen[k] = true
		if !k.Known() {
			t.Errorf("%q.Known() = false", k)
		}
	}
}
