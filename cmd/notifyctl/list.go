package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "トークンのユーザーの通知一覧を表示する",
		Long: `トークンのユーザーの通知を新しい順に表示する。

例:
  notifyctl list
  notifyctl list --unread -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			list, err := client.ListNotifications(cmd.Context(), unreadOnly)
			if err != nil {
				return fmt.Errorf("通知一覧の取得に失敗: %w", err)
			}
			return outputResult(cmd.OutOrStdout(), list, outputFmt)
		},
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "未読の通知のみ表示する")

	return cmd
}

func readCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "read [notification-id]",
		Short: "通知を既読にする",
		Long: `指定した通知、または --all で全通知を既読にする。

例:
  notifyctl read 3f0c...
  notifyctl read --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("通知IDか --all のどちらか一方を指定してください")
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			if all {
				if err := client.MarkAllAsRead(cmd.Context()); err != nil {
					return fmt.Errorf("全通知の既読処理に失敗: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "全通知を既読にしました")
				return nil
			}
			if err := client.MarkAsRead(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("通知の既読処理に失敗: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "通知を既読にしました")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "全通知を既読にする")

	return cmd
}
