package pkg

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForWrappedSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("mark: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("fetch: %w", ErrUnauthorized), http.StatusUnauthorized},
		{ErrNoSession, http.StatusConflict},
		{fmt.Errorf("%w: empty token", ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: 503", ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "err=%v", tt.err)
	}
}

func TestErrorWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("mark: %w", ErrNotFound))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "mark: not found", resp.Error)
}
