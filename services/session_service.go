package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/pkg"
)

// SessionLifecycle, session açılıp kapandığında haber alan taraf (SyncCoordinator).
type SessionLifecycle interface {
	Start(userID string)
	Stop()
}

// LoginRequest, UI kabuğunun login sonrası gönderdiği kimlik bilgisi.
// UserID boşsa access token'ın JWT claim'lerinden okunur.
type LoginRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

// SessionService, aktif kullanıcı oturumunu tutar ve sync'i ona göre açıp kapatır.
//
// Aynı zamanda oauth2.TokenSource'tur: REST client her request'te
// aktif session'ın token'ını buradan alır.
type SessionService interface {
	oauth2.TokenSource
	Login(ctx context.Context, req LoginRequest) (*models.Session, error)
	Logout()
	// Invalidate, backend token'ı reddettiğinde çağrılır (401). Logout ile aynı
	// etkiyi yapar ama sadece userID hâlâ aktif kullanıcı ise.
	Invalidate(userID string)
	Current() *models.Session
}

type sessionService struct {
	lifecycle SessionLifecycle
	parser    *jwt.Parser
	logger    zerolog.Logger
	now       func() time.Time

	// lifecycleMu: Login/Logout'u uçtan uca sıraya koyar; lifecycle.Start/Stop
	// çağrıları session değişimiyle aynı sırada yapılır.
	lifecycleMu sync.Mutex

	mu      sync.RWMutex
	current *models.Session
}

// NewSessionService, constructor — interface döner.
func NewSessionService(lifecycle SessionLifecycle, logger zerolog.Logger) SessionService {
	return &sessionService{
		lifecycle: lifecycle,
		parser:    jwt.NewParser(),
		logger:    logger.With().Str("component", "session").Logger(),
		now:       time.Now,
	}
}

// Login, yeni session'ı aktif eder. Önceki session (başka kullanıcı olsa bile)
// coordinator tarafından tamamen kapatılır, sonra yenisi açılır.
//
// Token imzası doğrulanmaz — imza backend'in işi. Burada sadece kullanıcı
// ID'si ve süresi okunur.
func (s *sessionService) Login(_ context.Context, req LoginRequest) (*models.Session, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", pkg.ErrBadRequest)
	}

	session := &models.Session{
		UserID:    strings.TrimSpace(req.UserID),
		Token:     token,
		CreatedAt: s.now(),
	}

	claims := &models.TokenClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err == nil {
		if session.UserID == "" {
			session.UserID = claims.ResolveUserID()
		}
		session.Username = claims.Username
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
	} else if session.UserID == "" {
		// Opak token (JWT değil) ve user_id verilmemiş — kimi sync edeceğimizi bilemeyiz.
		return nil, fmt.Errorf("%w: user_id is required for non-JWT tokens", pkg.ErrBadRequest)
	}

	if session.UserID == "" {
		return nil, fmt.Errorf("%w: token carries no user id", pkg.ErrUnauthorized)
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: token expired", pkg.ErrUnauthorized)
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	// Önceki session tamamen kapanmadan yeni token TokenSource'tan verilmemeli.
	s.endLocked("switch")

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	s.lifecycle.Start(session.UserID)
	s.logger.Info().Str("user_id", session.UserID).Msg("session started")

	copied := *session
	return &copied, nil
}

// Logout, session'ı düşürür ve sync'i durdurur. Session yoksa no-op.
func (s *sessionService) Logout() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.endLocked("logout")
}

func (s *sessionService) Invalidate(userID string) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil || current.UserID != userID {
		return
	}
	s.endLocked("token invalidated")
}

// endLocked, lifecycleMu tutulurken çağrılmalı.
func (s *sessionService) endLocked(reason string) {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current == nil {
		return
	}

	s.lifecycle.Stop()
	s.logger.Info().Str("user_id", current.UserID).Str("reason", reason).Msg("session ended")
}

// Current, aktif session'ın kopyasını döner; yoksa nil.
func (s *sessionService) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Token, oauth2.TokenSource implementasyonu.
func (s *sessionService) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, pkg.ErrNoSession
	}
	return &oauth2.Token{
		AccessToken: s.current.Token,
		TokenType:   "Bearer",
		Expiry:      s.current.ExpiresAt,
	}, nil
}
