package models

import "time"

// Session, sync'in çalışıp çalışmayacağını belirleyen kullanıcı kimliği.
//
// Login'de oluşur, logout veya token geçersiz olduğunda yok edilir.
// Tüm sayaçlar ve push subscription'ları aktif session'a aittir.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Token     string    `json:"-"` // UI'a geri gönderilmez
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
