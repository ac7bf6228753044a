package models

// CounterName, bir badge sayacının adıdır.
// Store içinde map key olarak kullanılır; bilinmeyen isimler ilk kullanımda 0 ile oluşur.
type CounterName string

const (
	CounterNotifications CounterName = "notifications"
	CounterChat          CounterName = "chat"
)

// Counters, senkronize edilen tüm sayaçların sabit sırası.
// Snapshot, metrics ve resync döngüleri bu sırayı izler.
var Counters = []CounterName{CounterNotifications, CounterChat}

// BadgeCounts, UI'a verilen okunmamış sayı özeti.
type BadgeCounts struct {
	Notifications int `json:"notifications"`
	Chat          int `json:"chat"`
}

// UnreadInfo, REST API'nin okunmamış sayı dönen endpoint'lerinin ortak gövdesi.
//
// GET /notifications?page=1 bunun yanında bildirim listesini de döner;
// biz sadece unread_count alanını okuyoruz.
type UnreadInfo struct {
	UnreadCount int `json:"unread_count"`
}
