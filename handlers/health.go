package handlers

import (
	"net/http"

	"github.com/akinalp/badgesync/pkg"
)

// PushStatus, push transport bağlantı durumu (push.WSTransport).
type PushStatus interface {
	Connected() bool
}

// HealthHandler, GET /api/health.
type HealthHandler struct {
	sync BadgeSync
	push PushStatus
}

func NewHealthHandler(sync BadgeSync, push PushStatus) *HealthHandler {
	return &HealthHandler{sync: sync, push: push}
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	SessionActive bool   `json:"session_active"`
	PushConnected bool   `json:"push_connected"`
}

// Check godoc
// GET /api/health
// Push bağlantısı kopuk olsa da 200 döner; daemon poll ile çalışmaya devam eder.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Service:       "badgesync",
		SessionActive: h.sync.Active(),
		PushConnected: h.push.Connected(),
	})
}
