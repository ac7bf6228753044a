package handlers

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/pkg"
)

// BadgeSync, badge endpoint'lerinin ihtiyaç duyduğu coordinator yüzeyi.
// services.SyncCoordinator bunu implement eder.
type BadgeSync interface {
	Active() bool
	Snapshot() models.BadgeCounts
	RefreshCounts()
	ResetNotificationCount()
	ResetChatCount()
	MarkAllNotificationsRead(ctx context.Context) error
	MarkNotificationRead(ctx context.Context, notificationID string) (int, error)
}

// BadgeHandler, UI kabuğunun badge sayaçlarını okuduğu ve sıfırladığı endpoint'ler.
type BadgeHandler struct {
	sync    BadgeSync
	refresh *rate.Limiter
}

// NewBadgeHandler, constructor. refresh limiter UI'ın zorladığı resync'leri sınırlar
// (pull-to-refresh spam'i backend'i dövmesin).
func NewBadgeHandler(sync BadgeSync, refresh *rate.Limiter) *BadgeHandler {
	return &BadgeHandler{sync: sync, refresh: refresh}
}

// badgeResponse, GET /api/badges yanıtı.
type badgeResponse struct {
	models.BadgeCounts
	Active bool `json:"active"`
}

func (h *BadgeHandler) counts() badgeResponse {
	return badgeResponse{BadgeCounts: h.sync.Snapshot(), Active: h.sync.Active()}
}

// Get godoc
// GET /api/badges
// Güncel okunmamış sayılarını döner. Session yokken sayaçlar 0'dır.
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, h.counts())
}

// Refresh godoc
// POST /api/badges/refresh
// Bir sonraki poll tick'ini beklemeden resync ister. Sonuç asenkron gelir
// (ws badge_update veya sonraki GET).
func (h *BadgeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.sync.Active() {
		pkg.Error(w, pkg.ErrNoSession)
		return
	}
	if !h.refresh.Allow() {
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "refresh rate limit exceeded")
		return
	}

	h.sync.RefreshCounts()
	pkg.JSON(w, http.StatusAccepted, map[string]string{"message": "refresh scheduled"})
}

// ResetNotifications godoc
// POST /api/badges/notifications/reset
// Bildirim sayacını yerel olarak sıfırlar (kullanıcı bildirim listesini açtı).
func (h *BadgeHandler) ResetNotifications(w http.ResponseWriter, r *http.Request) {
	h.sync.ResetNotificationCount()
	pkg.JSON(w, http.StatusOK, h.counts())
}

// ResetChat godoc
// POST /api/badges/chat/reset
func (h *BadgeHandler) ResetChat(w http.ResponseWriter, r *http.Request) {
	h.sync.ResetChatCount()
	pkg.JSON(w, http.StatusOK, h.counts())
}

// MarkAllRead godoc
// POST /api/notifications/read-all
// Backend'de tüm bildirimleri okundu işaretler; onaylanınca sayaç sıfırlanır.
func (h *BadgeHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.MarkAllNotificationsRead(r.Context()); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, h.counts())
}

// MarkRead godoc
// POST /api/notifications/{id}/read
func (h *BadgeHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	count, err := h.sync.MarkNotificationRead(r.Context(), id)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, models.UnreadInfo{UnreadCount: count})
}
