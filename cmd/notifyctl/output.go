package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/nao1215/stagenotify/pkg/event"
	"github.com/nao1215/stagenotify/pkg/httpclient"
)

// emitRow は1件のイベント送信の結果。
type emitRow struct {
	Index  int                   `json:"index"`
	Kind   event.Kind            `json:"kind"`
	Result httpclient.EmitResult `json:"result"`
}

// outputResult は結果を指定された形式で出力する。
func outputResult(w io.Writer, result any, format string) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	default:
		return outputTable(w, result)
	}
}

func outputJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputYAML はJSONタグに従ってYAMLを出力する。
func outputYAML(w io.Writer, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	out, err := yaml.JSONToYAML(data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func outputTable(w io.Writer, result any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	switch r := result.(type) {
	case []emitRow:
		fmt.Fprintln(tw, "#\tKIND\tDELIVERED\tDEDUPED\tRECIPIENTS")
		for _, row := range r {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", row.Index, row.Kind,
				row.Result.Delivered, row.Result.Deduped, strings.Join(row.Result.Recipients, ","))
		}
	case []httpclient.Notification:
		fmt.Fprintln(tw, "ID\tKIND\tENTITY\tCHANNELS\tREAD\tCREATED")
		for _, n := range r {
			fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%t\t%s\n", n.ID, n.Kind, n.EntityType, n.EntityID,
				strings.Join(n.Channels, ","), n.IsRead, n.CreatedAt.Format(time.RFC3339))
		}
	default:
		return outputJSON(w, result)
	}
	return nil
}
