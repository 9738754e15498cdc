// notifyctl は通知サービスを操作するCLIツール。
//
// 使い方:
//
//	notifyctl token --user service --secret $JWT_SECRET
//	notifyctl emit --kind show.approved --show show-1 --payload title=Hamlet
//	notifyctl replay -f events.json
//	notifyctl list --unread
//	notifyctl read <notification-id>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
	authToken string
	outputFmt string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd はサブコマンドを登録したルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "notifyctl",
		Short: "通知サービスへのイベント送信と通知の確認",
		Long: `notifyctl は通知サービスを操作するCLIツール。

ドメインイベントを送信して通知を生成する。配信に失敗したイベントは
replay で再送できる。配信済みの通知先は重複として抑止される。`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("NOTIFY_URL", "http://localhost:8086"), "通知サービスのURL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("NOTIFY_TOKEN"), "Bearerトークン")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "出力形式: table, json, yaml")

	rootCmd.AddCommand(emitCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(readCmd())

	return rootCmd
}

// envOr は環境変数keyの値を返す。未設定ならfallbackを返す。
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
