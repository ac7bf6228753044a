// Package push, isimli kanal tabanlı publish/subscribe transport'unu ve
// üstündeki reference-counted subscription yönetimini içerir.
//
// Katmanlar:
//   - Transport: tek bir fiziksel bağlantı üzerinde kanal subscribe/unsubscribe.
//     WSTransport Pusher protokolünü konuşan WebSocket implementasyonudur.
//   - Channel: subscribe edilmiş bir kanal; event'lere handler bind/unbind edilir.
//   - Subscriptions: aynı (kanal, event) çiftini birden fazla tüketicinin
//     paylaşmasını sağlar; kanal ancak son tüketici bıraktığında transport'tan düşer.
package push

import "github.com/akinalp/badgesync/models"

// EventHandler, bir kanalın event'i geldiğinde çağrılır.
// Transport'un okuma goroutine'inde çalışır — uzun süren iş yapmamalı.
type EventHandler func(event models.PushEvent)

// BindingID, Bind'in döndüğü ve Unbind'e verilen handler kimliği.
// Go'da fonksiyonlar karşılaştırılamadığı için handler'ı ID ile buluyoruz.
type BindingID string

// Channel, transport üzerinde subscribe edilmiş tek bir kanal.
type Channel interface {
	Name() string
	Bind(event string, handler EventHandler) BindingID
	Unbind(event string, id BindingID)
}

// Transport, push sunucusuna olan paylaşılan bağlantı.
//
// Subscribe bağlantı yoksa onu tembel (lazy) olarak kurar ve bağlantı
// hatalarını döndürmez; handler'lar bağlantı gelene kadar sadece tetiklenmez.
// Kopma sonrası yeniden bağlanma ve kanalların yeniden subscribe edilmesi
// transport'un kendi sorumluluğundadır.
type Transport interface {
	Subscribe(channel string) (Channel, error)
	Unsubscribe(channel string) error
	// OnReconnect, ilk bağlantıdan sonraki her taze bağlantıda çağrılacak fn'i kaydeder.
	OnReconnect(fn func())
	Close() error
}
