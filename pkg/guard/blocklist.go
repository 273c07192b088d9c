package guard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Blocklist denies clients by address. Static entries (single IPs or CIDR
// ranges) come from configuration and never expire; temporary blocks are
// added at runtime and swept out after their deadline.
type Blocklist struct {
	mu sync.RWMutex

	// nets holds the static CIDR ranges
	nets []*net.IPNet

	// permanent holds statically and permanently blocked single IPs
	permanent map[string]bool

	// blocked maps IP addresses to temporary block expiry time
	blocked map[string]time.Time
}

// NewBlocklist parses the static entries and starts the expiry sweeper.
func NewBlocklist(ctx context.Context, entries []string) (*Blocklist, error) {
	bl := &Blocklist{
		permanent: make(map[string]bool),
		blocked:   make(map[string]time.Time),
	}

	for _, entry := range entries {
		if _, network, err := net.ParseCIDR(entry); err == nil {
			bl.nets = append(bl.nets, network)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			bl.permanent[ip.String()] = true
			continue
		}
		return nil, fmt.Errorf("blocklist entry is neither an IP nor a CIDR: %s", entry)
	}

	go bl.sweepPeriodically(ctx)
	return bl, nil
}

// IsBlocked checks if a client address is blocked
func (bl *Blocklist) IsBlocked(ip string) bool {
	parsed := net.ParseIP(ip)

	bl.mu.RLock()
	defer bl.mu.RUnlock()

	if bl.permanent[ip] {
		return true
	}

	if parsed != nil {
		for _, network := range bl.nets {
			if network.Contains(parsed) {
				return true
			}
		}
	}

	if expiry, exists := bl.blocked[ip]; exists {
		if time.Now().Before(expiry) {
			return true
		}
	}

	return false
}

// Block temporarily blocks an IP address for the given duration
func (bl *Blocklist) Block(ip string, d time.Duration) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.blocked[ip] = time.Now().Add(d)
	slog.Info("temporarily blocked", "ip", ip, "for", d)
}

// BlockPermanent permanently blocks an IP address
func (bl *Blocklist) BlockPermanent(ip string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.permanent[ip] = true
	slog.Info("permanently blocked", "ip", ip)
}

func (bl *Blocklist) Unblock(ip string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	delete(bl.permanent, ip)
	delete(bl.blocked, ip)
	slog.Info("unblocked", "ip", ip)
}

func (bl *Blocklist) sweepPeriodically(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			bl.mu.Lock()
			now := time.Now()
			for ip, expiry := range bl.blocked {
				if now.After(expiry) {
					delete(bl.blocked, ip)
				}
			}
			bl.mu.Unlock()
		}
	}
}
