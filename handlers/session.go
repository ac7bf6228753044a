package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/badgesync/pkg"
	"github.com/akinalp/badgesync/services"
)

// SessionHandler, UI kabuğunun login/logout sonrası daemon'a haber verdiği endpoint'ler.
type SessionHandler struct {
	sessions services.SessionService
}

// NewSessionHandler, constructor.
func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login godoc
// POST /api/session
// Body: {"token": "...", "user_id": "42"}. user_id JWT token'larda opsiyoneldir.
// Önceki session varsa tamamen kapatılıp yenisi açılır.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, session)
}

// Current godoc
// GET /api/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Current()
	if session == nil {
		pkg.Error(w, pkg.ErrNoSession)
		return
	}
	pkg.JSON(w, http.StatusOK, session)
}

// Logout godoc
// DELETE /api/session
// Session yoksa da 200 döner — logout idempotent.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout()
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
