package admission

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tobyre/bearroom/room/config"
	"github.com/tobyre/bearroom/room/registry"
)

// Signal is the machine-readable rejection reason.
type Signal string

const (
	SignalServerFull  Signal = "server-full"
	SignalPerIPLimit  Signal = "per-ip-limit"
	SignalRateLimited Signal = "rate-limited"
)

// Decision is the outcome of an admission check. For rejections StatusCode
// and Reason are ready to write straight into the failed upgrade response.
type Decision struct {
	OK         bool
	Signal     Signal
	StatusCode int
	Reason     string
}

// Controller evaluates admission rules against the registry's live counts
// and its own sliding attempt windows.
type Controller struct {
	reg *registry.Registry

	maxGlobal   int
	maxPerIP    int
	maxAttempts int
	window      time.Duration

	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewController builds a Controller using the admission settings in cfg.
func NewController(reg *registry.Registry, cfg config.Config) *Controller {
	return &Controller{
		reg:         reg,
		maxGlobal:   cfg.MaxGlobalConnections,
		maxPerIP:    cfg.MaxConnectionsPerIP,
		maxAttempts: cfg.MaxConnectionAttemptsPerIP,
		window:      cfg.AttemptWindow,
		attempts:    make(map[string][]time.Time),
	}
}

// Check records the attempt and evaluates the rules in order. The caller is
// responsible for registering the connection on accept; a rejected attempt
// leaves no state behind except its window entry.
func (c *Controller) Check(remoteAddr string, now time.Time) Decision {
	return c.evaluate(remoteAddr, c.recordAttempt(remoteAddr, now))
}

// Confirm re-evaluates the rules for an attempt Check already recorded.
// It is the authoritative decision: callers hold the room mutation lock
// and register the connection before releasing it, so two concurrent
// upgrades can never both squeeze past a ceiling.
func (c *Controller) Confirm(remoteAddr string, now time.Time) Decision {
	return c.evaluate(remoteAddr, c.AttemptCount(remoteAddr, now))
}

func (c *Controller) evaluate(remoteAddr string, attemptCount int) Decision {
	if c.reg.Count() >= c.maxGlobal {
		return Decision{
			Signal:     SignalServerFull,
			StatusCode: http.StatusServiceUnavailable,
			Reason:     fmt.Sprintf("Server full (>%d)", c.maxGlobal),
		}
	}

	if c.reg.CountForIP(remoteAddr) >= c.maxPerIP {
		return Decision{
			Signal:     SignalPerIPLimit,
			StatusCode: http.StatusTooManyRequests,
			Reason:     fmt.Sprintf("Per-IP connection limit reached (%d)", c.maxPerIP),
		}
	}

	if attemptCount > c.maxAttempts {
		return Decision{
			Signal:     SignalRateLimited,
			StatusCode: http.StatusTooManyRequests,
			Reason:     fmt.Sprintf("Too many connection attempts (%d/%d) in window", attemptCount, c.maxAttempts),
		}
	}

	return Decision{OK: true}
}

// AttemptCount returns how many attempts from an origin are currently
// inside the window, pruning stale entries first.
func (c *Controller) AttemptCount(remoteAddr string, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.pruneLocked(remoteAddr, now)
	return len(kept)
}

// recordAttempt prunes stale entries, appends the new attempt, and returns
// the resulting in-window count.
func (c *Controller) recordAttempt(remoteAddr string, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := append(c.pruneLocked(remoteAddr, now), now)
	c.attempts[remoteAddr] = kept
	return len(kept)
}

func (c *Controller) pruneLocked(remoteAddr string, now time.Time) []time.Time {
	stamps := c.attempts[remoteAddr]
	kept := stamps[:0]
	for _, ts := range stamps {
		if now.Sub(ts) < c.window {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(c.attempts, remoteAddr)
		return nil
	}
	c.attempts[remoteAddr] = kept
	return kept
}
