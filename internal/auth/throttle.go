package auth

import (
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	DefaultMaxFailures   = 5
	DefaultFailureWindow = 10 * time.Minute
	DefaultBlockDuration = 5 * time.Minute
)

var ErrInvalidMaxFailures = errors.New("login throttle: max failures must be greater than zero")

// ThrottleConfig configures LoginThrottle. Zero durations fall back to the
// defaults.
type ThrottleConfig struct {
	MaxFailures   int           `mapstructure:"max_failures"`
	Window        time.Duration `mapstructure:"window"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
}

// DefaultThrottleConfig returns 5 failures per 10 minutes, 5 minute block.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MaxFailures:   DefaultMaxFailures,
		Window:        DefaultFailureWindow,
		BlockDuration: DefaultBlockDuration,
	}
}

// LoginThrottle blocks a key after repeated login failures inside a window.
// It is a deterrent against password guessing, not a security boundary:
// with MemoryAttemptStore its state is local to one process.
type LoginThrottle struct {
	maxFailures   int
	window        time.Duration
	blockDuration time.Duration

	store   AttemptStore
	now     func() time.Time
	metrics *ThrottleMetrics
	logger  *slog.Logger
}

type ThrottleOption func(*LoginThrottle)

// WithAttemptStore replaces the default in-memory store, e.g. with a
// shared store for multi-node deployments.
func WithAttemptStore(store AttemptStore) ThrottleOption {
	return func(t *LoginThrottle) {
		if store != nil {
			t.store = store
		}
	}
}

func WithClock(now func() time.Time) ThrottleOption {
	return func(t *LoginThrottle) {
		if now != nil {
			t.now = now
		}
	}
}

func WithThrottleMetrics(m *ThrottleMetrics) ThrottleOption {
	return func(t *LoginThrottle) {
		t.metrics = m
	}
}

func WithThrottleLogger(logger *slog.Logger) ThrottleOption {
	return func(t *LoginThrottle) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewLoginThrottle(cfg ThrottleConfig, opts ...ThrottleOption) (*LoginThrottle, error) {
	if cfg.MaxFailures <= 0 {
		return nil, ErrInvalidMaxFailures
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultFailureWindow
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = DefaultBlockDuration
	}

	t := &LoginThrottle{
		maxFailures:   cfg.MaxFailures,
		window:        cfg.Window,
		blockDuration: cfg.BlockDuration,
		store:         NewMemoryAttemptStore(WithSweepInterval(cfg.Window)),
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IsBlocked reports whether key is blocked and for how much longer.
func (t *LoginThrottle) IsBlocked(key string) (bool, time.Duration) {
	if strings.TrimSpace(key) == "" {
		return false, 0
	}

	now := t.now()
	state, ok := t.store.Load(key, now)
	if !ok || !state.BlockedUntil.After(now) {
		return false, 0
	}

	t.metrics.blockedAttempt()
	return true, state.BlockedUntil.Sub(now)
}

// RegisterFailure counts a failed login for key and blocks the key once the
// count reaches the configured maximum within the window.
func (t *LoginThrottle) RegisterFailure(key string) {
	if strings.TrimSpace(key) == "" {
		return
	}

	now := t.now()
	var blocked bool
	state := t.store.Update(key, now, func(cur LoginAttemptState, found bool) (LoginAttemptState, bool) {
		blocked = false
		next := cur
		if !found || now.Sub(cur.WindowStart) > t.window {
			next.WindowStart = now
			next.FailureCount = 0
		}
		next.FailureCount++

		if next.FailureCount >= t.maxFailures {
			next.BlockedUntil = now.Add(t.blockDuration)
			blocked = true
		}

		next.ExpiresAt = next.WindowStart.Add(t.window)
		if next.BlockedUntil.After(next.ExpiresAt) {
			next.ExpiresAt = next.BlockedUntil
		}
		return next, true
	})

	t.metrics.failure()
	if blocked {
		t.metrics.block()
		t.logger.Warn("login key blocked",
			"failures", state.FailureCount,
			"blocked_until", state.BlockedUntil)
	}
}

// RegisterSuccess forgets all failures and any block for key.
func (t *LoginThrottle) RegisterSuccess(key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	t.store.Delete(key)
}

// ThrottleKey builds the throttle key for a login attempt from the client
// address and the username, ignoring username case.
func ThrottleKey(remoteAddr, username string) string {
	ip := strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}

	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		u = "unknown"
	}
	return ip + "|" + u
}
