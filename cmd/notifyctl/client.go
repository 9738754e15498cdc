package main

import (
	"errors"

	"github.com/nao1215/stagenotify/pkg/httpclient"
)

// errMissingToken はトークンが指定されていないことを表す。
var errMissingToken = errors.New("トークンが必要です（--token または NOTIFY_TOKEN）")

// newClient はグローバルフラグから通知サービスのクライアントを生成する。
func newClient() (*httpclient.Client, error) {
	if authToken == "" {
		return nil, errMissingToken
	}
	return httpclient.New(serverURL, httpclient.WithToken(authToken)), nil
}
