package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/stagenotify/pkg/middleware"
)

func tokenCmd() *cobra.Command {
	var (
		userID string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "通知サービス用のJWTトークンを発行する",
		Long: `通知サービスと共有する秘密鍵でJWTトークンを発行する。

例:
  export NOTIFY_TOKEN=$(notifyctl token --user service --secret "$JWT_SECRET")`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("秘密鍵が必要です（--secret または JWT_SECRET）")
			}
			tok, err := middleware.GenerateJWT(secret, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "トークンのユーザーID")
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", ""), "JWTの秘密鍵")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "トークンの有効期間")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
