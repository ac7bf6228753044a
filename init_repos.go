// Package main — Repository katmanı başlatma.
//
// badgesync kendi verisini saklamaz; tek repository backend REST API'sidir.
// Her request'in Authorization header'ı aktif session'ın token'ından gelir.
package main

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/akinalp/badgesync/config"
	"github.com/akinalp/badgesync/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	ReadState repository.ReadStateRepository
}

// initRepositories, REST repository'lerini oluşturur.
func initRepositories(cfg *config.Config, tokens oauth2.TokenSource) (*Repositories, error) {
	readState, err := repository.NewHTTPReadStateRepo(cfg.API.BaseURL, cfg.API.Timeout, tokens)
	if err != nil {
		return nil, fmt.Errorf("read state repository: %w", err)
	}

	return &Repositories{
		ReadState: readState,
	}, nil
}
