// Package event はドメインイベントのワイヤ契約を提供する。
//
// 公演・キャスティング・公演日程の状態変化を表すDomainEventと、
// その種類（Kind）の閉じた集合、JSONのシリアライズ処理を含む。
// 上流のプロデューサーはこのパッケージの型でイベントを組み立て、
// 通知サービスへ送信する。
package event
