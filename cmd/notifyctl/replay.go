package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/nao1215/stagenotify/pkg/event"
)

func replayCmd() *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "ファイルのイベントを順番に再送する",
		Long: `ファイルに記録されたイベントを先頭から順に送信する。
JSON配列、単一のJSONオブジェクト、YAML（.yaml/.yml）を受け付ける。
送信に失敗した時点で停止する。配信済みの通知先は重複として抑止されるため、
同じファイルを何度再送してもよい。

例:
  notifyctl replay -f events.json
  cat events.json | notifyctl replay -f -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := readEvents(cmd.InOrStdin(), filename)
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			rows := make([]emitRow, 0, len(events))
			for i, e := range events {
				res, err := client.EmitEvent(cmd.Context(), e)
				if err != nil {
					_ = outputResult(cmd.OutOrStdout(), rows, outputFmt)
					return fmt.Errorf("%d番目のイベント（%s）の送信に失敗: %w", i, e.Kind, err)
				}
				rows = append(rows, emitRow{Index: i, Kind: e.Kind, Result: res})
			}
			return outputResult(cmd.OutOrStdout(), rows, outputFmt)
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "イベントファイル（- で標準入力）")
	_ = cmd.MarkFlagRequired("filename")

	return cmd
}

// readEvents はファイルまたは標準入力からイベントの一覧を読み込む。
func readEvents(stdin io.Reader, filename string) ([]event.DomainEvent, error) {
	var (
		data []byte
		err  error
	)
	if filename == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("イベントファイルの読み込みに失敗: %w", err)
	}

	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("YAMLの変換に失敗: %w", err)
		}
	}

	events, err := event.DecodeList(data)
	if err != nil {
		return nil, err
	}
	return events, nil
}
