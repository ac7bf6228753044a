package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/pkg"
)

type lifecycleCall struct {
	op     string
	userID string
}

type recordingLifecycle struct {
	calls []lifecycleCall
}

func (l *recordingLifecycle) Start(userID string) {
	l.calls = append(l.calls, lifecycleCall{"start", userID})
}

func (l *recordingLifecycle) Stop() {
	l.calls = append(l.calls, lifecycleCall{"stop", ""})
}

func signedToken(t *testing.T, claims *models.TokenClaims) string {
	t.Helper()
	// İmza doğrulanmadığı için herhangi bir anahtar yeterli.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSessionLoginReadsUserIDFromJWT(t *testing.T) {
	lc := &recordingLifecycle{}
	s := NewSessionService(lc, zerolog.Nop())

	token := signedToken(t, &models.TokenClaims{
		UserID:   "42",
		Username: "deniz",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	session, err := s.Login(context.Background(), LoginRequest{Token: token})
	require.NoError(t, err)
	assert.Equal(t, "42", session.UserID)
	assert.Equal(t, "deniz", session.Username)
	assert.False(t, session.ExpiresAt.IsZero())
	assert.Equal(t, []lifecycleCall{{"start", "42"}}, lc.calls)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, token, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
}

func TestSessionLoginFallsBackToSubject(t *testing.T) {
	s := NewSessionService(&recordingLifecycle{}, zerolog.Nop())

	token := signedToken(t, &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "77"},
	})

	session, err := s.Login(context.Background(), LoginRequest{Token: token})
	require.NoError(t, err)
	assert.Equal(t, "77", session.UserID)
}

func TestSessionLoginOpaqueToken(t *testing.T) {
	s := NewSessionService(&recordingLifecycle{}, zerolog.Nop())

	_, err := s.Login(context.Background(), LoginRequest{Token: "12|plain-api-token"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Nil(t, s.Current())

	session, err := s.Login(context.Background(), LoginRequest{Token: "12|plain-api-token", UserID: "12"})
	require.NoError(t, err)
	assert.Equal(t, "12", session.UserID)
}

func TestSessionLoginRejectsExpiredToken(t *testing.T) {
	lc := &recordingLifecycle{}
	s := NewSessionService(lc, zerolog.Nop())

	token := signedToken(t, &models.TokenClaims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := s.Login(context.Background(), LoginRequest{Token: token})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	assert.Empty(t, lc.calls)
}

func TestSessionLoginRequiresToken(t *testing.T) {
	s := NewSessionService(&recordingLifecycle{}, zerolog.Nop())
	_, err := s.Login(context.Background(), LoginRequest{Token: "  "})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestSessionLogout(t *testing.T) {
	lc := &recordingLifecycle{}
	s := NewSessionService(lc, zerolog.Nop())

	s.Logout() // session yokken no-op
	assert.Empty(t, lc.calls)

	_, err := s.Login(context.Background(), LoginRequest{Token: "t", UserID: "42"})
	require.NoError(t, err)

	s.Logout()
	s.Logout()
	assert.Equal(t, []lifecycleCall{{"start", "42"}, {"stop", ""}}, lc.calls)
	assert.Nil(t, s.Current())

	_, err = s.Token()
	assert.ErrorIs(t, err, pkg.ErrNoSession)
}

func TestSessionInvalidateOnlyMatchingUser(t *testing.T) {
	lc := &recordingLifecycle{}
	s := NewSessionService(lc, zerolog.Nop())

	_, err := s.Login(context.Background(), LoginRequest{Token: "t1", UserID: "42"})
	require.NoError(t, err)
	_, err = s.Login(context.Background(), LoginRequest{Token: "t2", UserID: "43"})
	require.NoError(t, err)

	// Önceki kullanıcının geç gelen 401'i yeni session'ı düşürmemeli.
	s.Invalidate("42")
	require.NotNil(t, s.Current())
	assert.Equal(t, "43", s.Current().UserID)

	s.Invalidate("43")
	assert.Nil(t, s.Current())
	assert.Equal(t, lifecycleCall{"stop", ""}, lc.calls[len(lc.calls)-1])
}

func TestSessionCurrentReturnsCopy(t *testing.T) {
	s := NewSessionService(&recordingLifecycle{}, zerolog.Nop())
	_, err := s.Login(context.Background(), LoginRequest{Token: "t", UserID: "42"})
	require.NoError(t, err)

	s.Current().UserID = "mutated"
	assert.Equal(t, "42", s.Current().UserID)
}

// tokenAwareLifecycle, her lifecycle çağrısında TokenSource'un ne verdiğini kaydeder.
type tokenAwareLifecycle struct {
	recordingLifecycle
	tokens oauth2.TokenSource
	seen   []string
}

func (l *tokenAwareLifecycle) record() {
	tok, err := l.tokens.Token()
	if err != nil {
		l.seen = append(l.seen, "none")
		return
	}
	l.seen = append(l.seen, tok.AccessToken)
}

func (l *tokenAwareLifecycle) Start(userID string) {
	l.record()
	l.recordingLifecycle.Start(userID)
}

func (l *tokenAwareLifecycle) Stop() {
	l.record()
	l.recordingLifecycle.Stop()
}

func TestSessionSwitchStopsPreviousBeforeServingNewToken(t *testing.T) {
	lc := &tokenAwareLifecycle{}
	s := NewSessionService(lc, zerolog.Nop())
	lc.tokens = s

	_, err := s.Login(context.Background(), LoginRequest{Token: "token-A", UserID: "A"})
	require.NoError(t, err)
	_, err = s.Login(context.Background(), LoginRequest{Token: "token-B", UserID: "B"})
	require.NoError(t, err)

	// A'nın sync'i durdurulurken hiçbir token verilmemeli; B'nin token'ı sadece Start("B") ile görünür.
	assert.Equal(t, []lifecycleCall{{"start", "A"}, {"stop", ""}, {"start", "B"}}, lc.calls)
	assert.Equal(t, []string{"token-A", "none", "token-B"}, lc.seen)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "token-B", tok.AccessToken)
}
