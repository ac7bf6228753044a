package models

import (
	"bytes"
	"encoding/json"
)

// Push kanal ve event isimleri. Kanal adı kullanıcı ID'si ile tamamlanır:
// fmt.Sprintf(ChannelUserNotifications, userID) → "user-notifications.42"
const (
	ChannelUserNotifications = "user-notifications.%s"
	ChannelSupportChat       = "support-chat.%s"

	EventNewNotification = "new-notification"
	EventNewMessage      = "new-message"
)

// FlexibleID, JSON'da hem sayı (42) hem string ("42") olarak gelebilen ID.
// Backend kullanıcı ID'lerini payload'a göre farklı tipte serialize ediyor.
type FlexibleID string

// UnmarshalJSON, sayı veya string kabul eder; null boş ID olur.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// PushEvent, transport'tan gelen tek bir event.
// Data ham JSON'dur — yorumlamak handler'ın işi.
type PushEvent struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PushPayload, sayaç event'lerinin (new-notification, new-message) ortak alanları.
//
// SenderID bildirimlerde opsiyoneldir (sistem bildirimleri gönderensizdir).
// ID varsa duplicate delivery tespiti için kullanılır.
type PushPayload struct {
	ID       FlexibleID `json:"id,omitempty"`
	SenderID FlexibleID `json:"sender_id,omitempty"`
}
