package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, backend'in verdiği access token'ın payload'ı.
//
// Backend kullanıcıyı bazı token'larda "sub" ile, eski sürümlerde "user_id" ile taşır.
// İkisi de okunur, "user_id" önceliklidir.
type TokenClaims struct {
	UserID   FlexibleID `json:"user_id,omitempty"`
	Username string     `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// ResolveUserID, token'dan kullanıcı ID'sini döner. İkisi de yoksa boş string.
func (c *TokenClaims) ResolveUserID() string {
	if c.UserID != "" {
		return string(c.UserID)
	}
	return c.RegisteredClaims.Subject
}
