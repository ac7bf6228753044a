// Package config, badgesync'in tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm tek bir concern'ü temsil eder.
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Push    PushConfig
	Sync    SyncConfig
	Session SessionConfig
	Log     LogConfig
}

// ServerConfig, UI kabuğunun bağlandığı yerel HTTP/WS API ayarları.
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// APIConfig, backend REST API ayarları.
type APIConfig struct {
	BaseURL string        // ör: https://api.example.com/api
	Timeout time.Duration // tek bir request için üst sınır
}

// PushConfig, Pusher protokolü konuşan push sunucusu ayarları.
type PushConfig struct {
	URL          string        // ör: wss://ws.example.com/app/APP_KEY
	AppKey       string        // URL'de yoksa path'e eklenir
	BackoffBase  time.Duration // ilk reconnect beklemesi
	BackoffMax   time.Duration // reconnect beklemesinin tavanı
	PingInterval time.Duration // pusher:ping aralığı
}

// SyncConfig, sayaç senkronizasyon ayarları.
type SyncConfig struct {
	PollInterval  time.Duration // authoritative resync aralığı (varsayılan 30sn)
	DedupeTTL     time.Duration // aynı push event ID'sinin duplicate sayılacağı süre
	RefreshPerSec float64       // UI'ın zorladığı refresh'ler için token bucket hızı
	RefreshBurst  int
}

// SessionConfig, açılışta otomatik login için opsiyonel kimlik.
// BootstrapUserID sadece token JWT değilse gerekir.
type SessionConfig struct {
	BootstrapToken  string
	BootstrapUserID string
}

// LogConfig, zerolog ayarları.
type LogConfig struct {
	Level   string
	Console bool
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler; yoksa sessizce devam eder.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9191"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	apiTimeout, err := getSeconds("API_TIMEOUT_SECONDS", "10")
	if err != nil {
		return nil, err
	}

	pollInterval, err := getSeconds("SYNC_POLL_INTERVAL_SECONDS", "30")
	if err != nil {
		return nil, err
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("invalid SYNC_POLL_INTERVAL_SECONDS: must be positive")
	}

	dedupeTTL, err := getSeconds("SYNC_DEDUPE_TTL_SECONDS", "300")
	if err != nil {
		return nil, err
	}

	refreshPerSec, err := strconv.ParseFloat(getEnv("SYNC_REFRESH_PER_SECOND", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_REFRESH_PER_SECOND: %w", err)
	}

	refreshBurst, err := strconv.Atoi(getEnv("SYNC_REFRESH_BURST", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_REFRESH_BURST: %w", err)
	}

	backoffBase, err := getMillis("PUSH_BACKOFF_BASE_MS", "500")
	if err != nil {
		return nil, err
	}

	backoffMax, err := getSeconds("PUSH_BACKOFF_MAX_SECONDS", "30")
	if err != nil {
		return nil, err
	}

	pingInterval, err := getSeconds("PUSH_PING_INTERVAL_SECONDS", "60")
	if err != nil {
		return nil, err
	}

	baseURL := getEnv("API_BASE_URL", "")
	if baseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	pushURL := getEnv("PUSH_URL", "")
	if pushURL == "" {
		return nil, fmt.Errorf("PUSH_URL environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
			Port: port,
			AllowedOrigins: []string{
				"http://localhost:8081", // Metro / Expo dev
				"http://localhost:19006",
				getEnv("SERVER_EXTRA_ORIGIN", "capacitor://localhost"),
			},
		},
		API: APIConfig{
			BaseURL: baseURL,
			Timeout: apiTimeout,
		},
		Push: PushConfig{
			URL:          pushURL,
			AppKey:       getEnv("PUSH_APP_KEY", ""),
			BackoffBase:  backoffBase,
			BackoffMax:   backoffMax,
			PingInterval: pingInterval,
		},
		Sync: SyncConfig{
			PollInterval:  pollInterval,
			DedupeTTL:     dedupeTTL,
			RefreshPerSec: refreshPerSec,
			RefreshBurst:  refreshBurst,
		},
		Session: SessionConfig{
			BootstrapToken:  getEnv("SESSION_TOKEN", ""),
			BootstrapUserID: getEnv("SESSION_USER_ID", ""),
		},
		Log: LogConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Console: getEnv("LOG_CONSOLE", "false") == "true",
		},
	}

	return cfg, nil
}

// Addr, yerel HTTP server'ın dinleyeceği adresi döner (ör: "127.0.0.1:9191").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getSeconds(key, fallback string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func getMillis(key, fallback string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Millisecond, nil
}
