package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PollFunc, her tick'te çalışan iş. ctx, Stop() çağrıldığında iptal edilir.
type PollFunc func(ctx context.Context) error

// PollScheduler, push teslimatından bağımsız olarak fn'i sabit aralıkla çalıştırır.
// Push transport'ları mesajları sessizce düşürebildiği için doğruluk garantisi budur.
//
// Goroutine pattern: time.NewTicker + select + ctx (pkg/cache/ttl_cache.go ile aynı).
// fn her zaman tek bir döngü goroutine'inde çalışır — iki poll asla üst üste binmez.
type PollScheduler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	ticker  *time.Ticker
	cancel  context.CancelFunc
	trigger chan struct{}
	running bool
}

// NewPollScheduler, durdurulmuş bir scheduler döner.
func NewPollScheduler(logger zerolog.Logger) *PollScheduler {
	return &PollScheduler{
		logger: logger.With().Str("component", "poll_scheduler").Logger(),
	}
}

// Start, fn'i her interval'da çağırmaya başlar. Zaten çalışıyorsa önceki
// ticker yenisi oluşturulmadan önce durdurulur — timer sızıntısı olmaz.
func (p *PollScheduler) Start(interval time.Duration, fn PollFunc) {
	if interval <= 0 {
		p.logger.Error().Dur("interval", interval).Msg("non-positive poll interval, ignoring start")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(interval)
	trigger := make(chan struct{}, 1)

	p.ticker = ticker
	p.cancel = cancel
	p.trigger = trigger
	p.running = true

	go p.loop(ctx, ticker, trigger, fn)

	p.logger.Debug().Dur("interval", interval).Msg("poll scheduler started")
}

// Stop, ticker'ı senkron olarak durdurur. Döndükten sonra yeni tick başlamaz;
// o an çalışan fn'in ctx'i iptal edilir. Çalışmıyorken çağırmak güvenlidir.
func (p *PollScheduler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.logger.Debug().Msg("poll scheduler stopped")
	}
	p.stopLocked()
}

// Trigger, bir sonraki tick'i beklemeden fn'i çalıştırır. Bekleyen bir tetik
// varsa yenisi birleştirilir. Çalışmıyorken no-op.
func (p *PollScheduler) Trigger() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Running, scheduler'ın aktif olup olmadığını döner.
func (p *PollScheduler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PollScheduler) stopLocked() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.trigger = nil
	p.running = false
}

func (p *PollScheduler) loop(ctx context.Context, ticker *time.Ticker, trigger <-chan struct{}, fn PollFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-trigger:
		}

		// select birden fazla hazır case'den rastgele seçer; Stop sonrası
		// kuyrukta kalan bir tick fn'i çalıştırmamalı.
		if ctx.Err() != nil {
			return
		}
		p.runOnce(ctx, fn)
	}
}

// runOnce, fn'i çalıştırır; hata ve panik loglanır, schedule devam eder.
func (p *PollScheduler) runOnce(ctx context.Context, fn PollFunc) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("poll function panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		p.logger.Warn().Err(fmt.Errorf("poll tick: %w", err)).Msg("poll failed, will retry on next tick")
	}
}
