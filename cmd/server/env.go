package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// serverEnv holds the deployment toggles read from the environment.
type serverEnv struct {
	EnableAdmin   bool `env:"INV_ENABLE_ADMIN_HTTP"`
	EnableJournal bool `env:"INV_ENABLE_JOURNAL" envDefault:"true"`
	MaxWaiting    int  `env:"INV_MAX_WAITING" envDefault:"0"`
}

func loadServerEnv() (serverEnv, error) {
	var deploy struct {
		DeployEnv string `env:"DEPLOY_ENV"`
	}
	if err := env.Parse(&deploy); err != nil {
		return serverEnv{}, fmt.Errorf("parse env: %w", err)
	}
	// Admin stays on unless the deploy says otherwise; an explicit
	// INV_ENABLE_ADMIN_HTTP overrides it.
	cfg := serverEnv{EnableAdmin: defaultEnableAdminHTTP(deploy.DeployEnv)}
	if err := env.Parse(&cfg); err != nil {
		return serverEnv{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxWaiting < 0 {
		return serverEnv{}, fmt.Errorf("INV_MAX_WAITING must be >= 0")
	}
	return cfg, nil
}

func defaultEnableAdminHTTP(deployEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(deployEnv)) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
