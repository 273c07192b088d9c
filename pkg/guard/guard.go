package guard

import (
	"context"
	"errors"

	"github.com/embermesh/ember/pkg/conf"
)

var (
	ErrBlocked     = errors.New("client address is blocked")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Guard decides whether a client may be served. A nil *Guard admits
// everything, so callers don't have to special-case a disabled config.
type Guard struct {
	limiter   Limiter
	blocklist *Blocklist
}

// New builds a guard from configuration. Returns nil when cfg is nil or
// enables nothing.
func New(ctx context.Context, cfg *conf.GuardConfig) (*Guard, error) {
	if cfg == nil {
		return nil, nil
	}

	g := &Guard{}

	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		g.limiter = NewTokenBucket(ctx, rl.RequestsPerSecond, rl.BurstSize)
	}

	if len(cfg.Blocklist) > 0 {
		blocklist, err := NewBlocklist(ctx, cfg.Blocklist)
		if err != nil {
			return nil, err
		}
		g.blocklist = blocklist
	}

	if g.limiter == nil && g.blocklist == nil {
		return nil, nil
	}
	return g, nil
}

// Admit returns nil when the client may be served, or a sentinel error
// naming the reason.
func (g *Guard) Admit(ip string) error {
	if g == nil {
		return nil
	}

	if g.blocklist != nil && g.blocklist.IsBlocked(ip) {
		return ErrBlocked
	}

	if g.limiter != nil && !g.limiter.Allow(ip) {
		return ErrRateLimited
	}

	return nil
}

// Blocklist exposes the runtime blocklist, nil when none is configured.
func (g *Guard) Blocklist() *Blocklist {
	if g == nil {
		return nil
	}
	return g.blocklist
}
