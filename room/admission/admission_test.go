package admission

import (
	"net/http"
	"testing"
	"time"

	"github.com/tobyre/bearroom/room/config"
	"github.com/tobyre/bearroom/room/registry"
)

type nopSender struct{}

func (nopSender) Send(message []byte) error { return nil }
func (nopSender) Close(code int, reason string) {}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MaxGlobalConnections = 2
	cfg.MaxConnectionsPerIP = 1
	cfg.MaxConnectionAttemptsPerIP = 2
	cfg.AttemptWindow = 60 * time.Second
	return cfg
}

func TestAcceptWhenUnderAllCeilings(t *testing.T) {
	reg := registry.New()
	ctrl := NewController(reg, testConfig())

	d := ctrl.Check("10.0.0.1", time.Now())
	if !d.OK {
		t.Fatalf("Expected accept, got %+v", d)
	}
}

func TestGlobalCeilingRejectsRegardlessOfOrigin(t *testing.T) {
	reg := registry.New()
	cfg := testConfig()
	cfg.MaxConnectionsPerIP = 10
	ctrl := NewController(reg, cfg)
	now := time.Now()

	reg.Register("10.0.0.1", nopSender{}, now)
	reg.Register("10.0.0.2", nopSender{}, now)

	d := ctrl.Check("10.0.0.3", now)
	if d.OK {
		t.Fatal("Expected rejection at global ceiling")
	}
	if d.Signal != SignalServerFull {
		t.Errorf("Expected server-full signal, got %s", d.Signal)
	}
	if d.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", d.StatusCode)
	}
}

func TestPerIPCeiling(t *testing.T) {
	reg := registry.New()
	ctrl := NewController(reg, testConfig())
	now := time.Now()

	reg.Register("10.0.0.1", nopSender{}, now)

	d := ctrl.Check("10.0.0.1", now)
	if d.OK {
		t.Fatal("Expected rejection at per-IP ceiling")
	}
	if d.Signal != SignalPerIPLimit {
		t.Errorf("Expected per-ip-limit signal, got %s", d.Signal)
	}
	if d.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", d.StatusCode)
	}

	// A different origin is unaffected.
	if d := ctrl.Check("10.0.0.2", now); !d.OK {
		t.Errorf("Expected accept for other origin, got %+v", d)
	}
}

func TestRateLimitCountsRejectedAttempts(t *testing.T) {
	reg := registry.New()
	ctrl := NewController(reg, testConfig())
	now := time.Now()

	// Attempt ceiling is 2: the first two attempts fit the window, the
	// third trips the rate limiter even though none opened a connection.
	if d := ctrl.Check("10.0.0.1", now); !d.OK {
		t.Fatalf("Attempt 1 should pass, got %+v", d)
	}
	if d := ctrl.Check("10.0.0.1", now.Add(time.Second)); !d.OK {
		t.Fatalf("Attempt 2 should pass, got %+v", d)
	}

	d := ctrl.Check("10.0.0.1", now.Add(2*time.Second))
	if d.OK {
		t.Fatal("Attempt 3 should be rate limited")
	}
	if d.Signal != SignalRateLimited {
		t.Errorf("Expected rate-limited signal, got %s", d.Signal)
	}
	if d.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", d.StatusCode)
	}
}

func TestRejectedAttemptsStillFillWindow(t *testing.T) {
	reg := registry.New()
	ctrl := NewController(reg, testConfig())
	now := time.Now()

	// Saturate the per-IP ceiling so every attempt is rejected up front.
	reg.Register("10.0.0.1", nopSender{}, now)

	ctrl.Check("10.0.0.1", now)
	ctrl.Check("10.0.0.1", now.Add(time.Second))
	ctrl.Check("10.0.0.1", now.Add(2*time.Second))

	if got := ctrl.AttemptCount("10.0.0.1", now.Add(2*time.Second)); got != 3 {
		t.Errorf("Expected 3 recorded attempts, got %d", got)
	}
}

func TestWindowPrunesLazily(t *testing.T) {
	reg := registry.New()
	ctrl := NewController(reg, testConfig())
	now := time.Now()

	ctrl.Check("10.0.0.1", now)
	ctrl.Check("10.0.0.1", now.Add(time.Second))

	// Both earlier attempts have aged out, so this one passes again.
	later := now.Add(61 * time.Second)
	if d := ctrl.Check("10.0.0.1", later); !d.OK {
		t.Fatalf("Expected accept after window expiry, got %+v", d)
	}
	if got := ctrl.AttemptCount("10.0.0.1", later); got != 1 {
		t.Errorf("Expected 1 attempt in window after pruning, got %d", got)
	}
}

func TestRuleOrderGlobalBeforePerIP(t *testing.T) {
	reg := registry.New()
	cfg := testConfig()
	cfg.MaxGlobalConnections = 1
	ctrl := NewController(reg, cfg)
	now := time.Now()

	// One open connection from the same IP trips both rules; the global
	// ceiling must win because it is evaluated first.
	reg.Register("10.0.0.1", nopSender{}, now)

	d := ctrl.Check("10.0.0.1", now)
	if d.Signal != SignalServerFull {
		t.Errorf("Expected server-full to win, got %s", d.Signal)
	}
}
