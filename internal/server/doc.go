// Package server は通知サービスのHTTPサーバーを提供する。
//
// 内部APIでドメインイベントを受け付けてディスパッチャーに渡し、
// ユーザー向けAPIで通知の一覧取得と既読管理を行う。
package server
