package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
)

// APIResponse, yerel UI API'sinin zarfı. Başarıda Data, hatada Error dolu.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON, status ile başarılı bir zarf yazar.
func JSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, APIResponse{Success: true, Data: data})
}

// Error, err'i sentinel'ine göre status'a çevirip hata zarfı yazar.
func Error(w http.ResponseWriter, err error) {
	writeEnvelope(w, StatusFor(err), APIResponse{Error: err.Error()})
}

// ErrorWithMessage, sentinel'i olmayan hatalar için (429, bozuk gövde).
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, APIResponse{Error: message})
}

func writeEnvelope(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Header gönderildi; encode hatasında yapılacak bir şey kalmıyor.
	_ = json.NewEncoder(w).Encode(resp)
}

// statusBySentinel, sırayla denenir; wrap'lenmiş hatalar errors.Is ile eşleşir.
var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrNoSession, http.StatusConflict},
	{ErrBadRequest, http.StatusBadRequest},
	{ErrUpstream, http.StatusBadGateway},
}

// StatusFor, err'in HTTP status karşılığı; tanınmayan hatalar 500.
func StatusFor(err error) int {
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
