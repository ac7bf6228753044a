package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/akinalp/badgesync/pkg"
)

// maxBodySize, bir yanıttan okunacak en fazla byte (bildirim listesi sayfası dahil).
const maxBodySize = 1 << 20

// unreadCountBody, sayaç dönen endpoint'lerin wire formatı. Alan pointer'dır:
// 2xx olup unread_count taşımayan bir gövde 0 sayılmamalı.
type unreadCountBody struct {
	UnreadCount *int `json:"unread_count"`
}

// httpReadStateRepo, ReadStateRepository'nin REST implementasyonu.
type httpReadStateRepo struct {
	baseURL *url.URL
	client  *http.Client
}

// NewHTTPReadStateRepo, constructor — interface döner.
//
// tokens her request'te sorulur; böylece login/logout sonrası client yeniden
// oluşturulmadan aktif session'ın token'ı kullanılır.
func NewHTTPReadStateRepo(baseURL string, timeout time.Duration, tokens oauth2.TokenSource) (ReadStateRepository, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	return &httpReadStateRepo{
		baseURL: u,
		client: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: tokens,
				Base:   http.DefaultTransport,
			},
		},
	}, nil
}

// NotificationUnreadCount: GET /notifications?page=1 → { unread_count }
func (r *httpReadStateRepo) NotificationUnreadCount(ctx context.Context) (int, error) {
	count, err := r.count(ctx, http.MethodGet, "/notifications", url.Values{"page": {"1"}})
	if err != nil {
		return 0, fmt.Errorf("failed to get notification unread count: %w", err)
	}
	return count, nil
}

// ChatUnreadCount: GET /support/unread-count → { unread_count }
func (r *httpReadStateRepo) ChatUnreadCount(ctx context.Context) (int, error) {
	count, err := r.count(ctx, http.MethodGet, "/support/unread-count", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get chat unread count: %w", err)
	}
	return count, nil
}

// MarkAllNotificationsRead: POST /notifications/read-all
func (r *httpReadStateRepo) MarkAllNotificationsRead(ctx context.Context) error {
	if err := r.do(ctx, http.MethodPost, "/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// MarkNotificationRead: POST /notifications/{id}/read → { unread_count }
func (r *httpReadStateRepo) MarkNotificationRead(ctx context.Context, notificationID string) (int, error) {
	if strings.TrimSpace(notificationID) == "" {
		return 0, fmt.Errorf("%w: notification id is required", pkg.ErrBadRequest)
	}

	path := "/notifications/" + url.PathEscape(notificationID) + "/read"
	count, err := r.count(ctx, http.MethodPost, path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}
	return count, nil
}

// count, unread_count dönen bir endpoint'i çağırır. Alan yoksa ErrUpstream.
func (r *httpReadStateRepo) count(ctx context.Context, method, path string, query url.Values) (int, error) {
	var body unreadCountBody
	if err := r.do(ctx, method, path, query, &body); err != nil {
		return 0, err
	}
	if body.UnreadCount == nil {
		return 0, fmt.Errorf("%w: %s %s: response has no unread_count", pkg.ErrUpstream, method, path)
	}
	return *body.UnreadCount, nil
}

// do, tek bir JSON request'i çalıştırır. out nil ise gövde okunmadan atılır.
func (r *httpReadStateRepo) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := *r.baseURL
	u.Path = r.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrInternal, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, pkg.ErrNoSession) {
			return err
		}
		return fmt.Errorf("%w: %v", pkg.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodySize)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, body)
		return fmt.Errorf("%w: %s %s returned 401", pkg.ErrUnauthorized, method, path)
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, body)
		return fmt.Errorf("%w: %s %s returned 404", pkg.ErrNotFound, method, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, body)
		return fmt.Errorf("%w: %s %s returned %d", pkg.ErrUpstream, method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", pkg.ErrUpstream, path, err)
	}
	return nil
}
