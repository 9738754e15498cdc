// Package notification は通知配信の中核を提供する。
//
// ドメインイベントを通知種別へ分類し、通知先ユーザーを解決し、
// ユーザーごとに重複排除キーで一度だけ通知レコードを保存する。
// メール対象の通知種別ではメール送信キューにジョブを積む（送信はしない）。
//
// 永続化やユーザー検索はインターフェース越しに注入する。
// 本パッケージにはテスト用のインメモリ実装も含まれ、本番実装は
// sqlite・postgresサブパッケージにある。
package notification
