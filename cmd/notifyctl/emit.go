package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/stagenotify/pkg/event"
)

func emitCmd() *cobra.Command {
	var (
		kind         string
		showID       string
		theaterID    string
		occurrenceID string
		performerID  string
		dedupeKey    string
		payload      []string
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "ドメインイベントを1件送信する",
		Long: `ドメインイベントを1件送信し、配信結果を表示する。

例:
  # 公演の承認を通知
  notifyctl emit --kind show.approved --show show-1 --payload title=Hamlet

  # 公演回の時刻変更を通知
  notifyctl emit --kind occurrence.time_changed --show show-1 --occurrence occ-1 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parsePayload(payload)
			if err != nil {
				return err
			}
			if !event.Kind(kind).Known() {
				fmt.Fprintf(cmd.ErrOrStderr(), "警告: 未知のイベント種別です: %s\n", kind)
			}

			e := event.New(event.Kind(kind), p,
				event.WithShow(showID),
				event.WithTheater(theaterID),
				event.WithOccurrence(occurrenceID),
				event.WithPerformer(performerID),
				event.WithDedupeKey(dedupeKey),
			)

			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.EmitEvent(cmd.Context(), e)
			if err != nil {
				return fmt.Errorf("イベントの送信に失敗: %w", err)
			}
			return outputResult(cmd.OutOrStdout(), []emitRow{{Index: 0, Kind: e.Kind, Result: res}}, outputFmt)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "イベント種別（例: show.approved）")
	cmd.Flags().StringVar(&showID, "show", "", "公演ID")
	cmd.Flags().StringVar(&theaterID, "theater", "", "劇場ID")
	cmd.Flags().StringVar(&occurrenceID, "occurrence", "", "公演回ID")
	cmd.Flags().StringVar(&performerID, "performer", "", "出演者のユーザーID")
	cmd.Flags().StringVar(&dedupeKey, "dedupe-key", "", "重複排除キーの上書き")
	cmd.Flags().StringArrayVarP(&payload, "payload", "p", nil, "ペイロード（key=value、複数指定可）")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

// parsePayload は key=value の一覧をペイロードに変換する。
// 値がJSONとして解釈できる場合（数値、真偽値、オブジェクトなど）はその値を使い、それ以外は文字列として扱う。
func parsePayload(pairs []string) (event.Payload, error) {
	p := event.Payload{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("ペイロードの形式が不正です（key=value）: %q", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		p[key] = v
	}
	return p, nil
}
