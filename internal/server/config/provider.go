package config

import (
	"sync/atomic"

	"github.com/rosedal2/condoauth/internal/cryptox"
)

// Provider holds the active Config and swaps it atomically on Reload.
// Readers always see a complete, validated Config.
type Provider struct {
	current atomic.Pointer[Config]
	load    func() (*Config, error)
}

// NewProvider loads the initial Config with load and keeps load for reloads.
func NewProvider(load func() (*Config, error)) (*Provider, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	p := &Provider{load: load}
	p.current.Store(cfg)
	return p, nil
}

// Static returns a Provider that always serves cfg.
func Static(cfg *Config) *Provider {
	p := &Provider{load: func() (*Config, error) { return cfg, nil }}
	p.current.Store(cfg)
	return p
}

func (p *Provider) Current() *Config {
	return p.current.Load()
}

// Reload re-runs loading and validation. On error the previous Config stays
// active.
func (p *Provider) Reload() error {
	cfg, err := p.load()
	if err != nil {
		return err
	}
	p.current.Store(cfg)
	return nil
}

// EncryptionKey is a cryptox.KeyFunc reading the key of the current Config.
func (p *Provider) EncryptionKey() ([]byte, error) {
	return cryptox.KeyFromHex(p.Current().EncryptionKeyHex)
}
