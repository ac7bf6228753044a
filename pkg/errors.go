// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
//	if errors.Is(err, pkg.ErrUnauthorized) { ... }
package pkg

import "errors"

// Domain-level error'lar.
// Repository katmanı upstream hatalarını bunlarla sarar, handler katmanı
// HTTP status code'larına map'ler.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")

	// ErrUpstream: REST API 2xx dışı bir yanıt döndü veya ağ hatası oluştu.
	// Sync katmanı bunu "sayaç değişmedi" olarak yorumlar.
	ErrUpstream = errors.New("upstream unavailable")

	// ErrNoSession: aktif kullanıcı oturumu yokken session gerektiren işlem çağrıldı.
	ErrNoSession = errors.New("no active session")

	// ErrTransportClosed: push transport kapatıldıktan sonra subscribe denendi.
	ErrTransportClosed = errors.New("push transport closed")
)
