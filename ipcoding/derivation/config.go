package derivation

import (
	"time"

	"github.com/CMSgov/ipcoding-app/conf"
	"github.com/pkg/errors"
)

// Config holds the settings needed to stand up an Engine backed by a knowledge base file.
type Config struct {
	KBPath string `conf:"IPCODING_KB_PATH" conf_default:"../shared_files/knowledge_base/ip_coding_kb.yaml"`
	// RVUTablePath optionally points at a CMS RVU table merged into the knowledge base.
	RVUTablePath string `conf:"IPCODING_RVU_TABLE_PATH"`
	// EvidenceMaxBytes bounds how much of each evidence snippet is scanned.
	EvidenceMaxBytes int `conf:"IPCODING_EVIDENCE_MAX_BYTES" conf_default:"4096"`
	// ReloadMaxElapsedSec bounds how long a watched reload is retried.
	ReloadMaxElapsedSec int `conf:"IPCODING_KB_RELOAD_MAX_ELAPSED_SEC" conf_default:"30"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := conf.Checkout(&cfg); err != nil {
		return nil, err
	}
	if cfg.EvidenceMaxBytes <= 0 {
		return nil, errors.Errorf("IPCODING_EVIDENCE_MAX_BYTES must be positive, got %d", cfg.EvidenceMaxBytes)
	}
	if cfg.ReloadMaxElapsedSec < 0 {
		return nil, errors.Errorf("IPCODING_KB_RELOAD_MAX_ELAPSED_SEC must not be negative, got %d", cfg.ReloadMaxElapsedSec)
	}
	return &cfg, nil
}

// ReloadMaxElapsed is the retry budget for a watched reload.
func (c *Config) ReloadMaxElapsed() time.Duration {
	return time.Duration(c.ReloadMaxElapsedSec) * time.Second
}
