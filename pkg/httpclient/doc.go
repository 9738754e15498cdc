// Package httpclient は通知サービスのHTTP APIを呼び出すクライアントを提供する。
//
// JSONリクエストの送受信とBearerトークンの付与を共通化し、
// イベント受付APIと通知一覧APIの型付きメソッドを持つ。
package httpclient
