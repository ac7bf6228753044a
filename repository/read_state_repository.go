package repository

import "context"

// ReadStateRepository, backend'in okunmamış sayı ve okundu işaretleme endpoint'leri için interface.
//
// Her sayaç bağımsız bir endpoint'ten gelir; biri hata verirse diğeri etkilenmez.
// Tüm metodlar 2xx dışı yanıtta veya ağ hatasında pkg.ErrUpstream
// (401'de pkg.ErrUnauthorized) saran bir error döner.
type ReadStateRepository interface {
	NotificationUnreadCount(ctx context.Context) (int, error)
	ChatUnreadCount(ctx context.Context) (int, error)
	MarkAllNotificationsRead(ctx context.Context) error
	MarkNotificationRead(ctx context.Context, notificationID string) (int, error)
}
