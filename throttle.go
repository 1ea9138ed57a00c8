package auth

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// DefaultMaxFailures is the number of failed logins tolerated per window
	DefaultMaxFailures = 3
	// DefaultThrottleWindow is the failed login window and entry TTL
	DefaultThrottleWindow = 5 * time.Minute
)

// ThrottleOption configures a login throttle
type ThrottleOption func(*throttleOptions)

type throttleOptions struct {
	maxFailures int
	window      time.Duration
	now         func() time.Time
	logger      Logger
}

// WithMaxFailures sets how many failures are tolerated before lockout
func WithMaxFailures(n int) ThrottleOption {
	return func(o *throttleOptions) {
		if n > 0 {
			o.maxFailures = n
		}
	}
}

// WithThrottleWindow sets the failure window and entry TTL
func WithThrottleWindow(d time.Duration) ThrottleOption {
	return func(o *throttleOptions) {
		if d > 0 {
			o.window = d
		}
	}
}

// WithThrottleClock overrides the time source
func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(o *throttleOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithThrottleLogger sets the logger
func WithThrottleLogger(logger Logger) ThrottleOption {
	return func(o *throttleOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newThrottleOptions(opts []ThrottleOption) throttleOptions {
	o := throttleOptions{
		maxFailures: DefaultMaxFailures,
		window:      DefaultThrottleWindow,
		now:         time.Now,
		logger:      defLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type failedLogins struct {
	count       int
	windowStart time.Time
	expiresAt   time.Time
}

// MemoryThrottle is a process local failed login counter. Entries live for
// the window after the last failure and are evicted lazily. A failure that
// arrives after the window elapsed starts a new window with a count of one.
// Counts are lost on restart and are not shared between instances.
type MemoryThrottle struct {
	entries *xsync.MapOf[string, failedLogins]
	opts    throttleOptions
}

var _ LoginThrottle = (*MemoryThrottle)(nil)

// NewMemoryThrottle creates an in memory throttle
func NewMemoryThrottle(opts ...ThrottleOption) *MemoryThrottle {
	return &MemoryThrottle{
		entries: xsync.NewMapOf[string, failedLogins](),
		opts:    newThrottleOptions(opts),
	}
}

// RecordFailure counts a failed login for email and returns
// ErrTooManyAttempts once the count goes over the limit inside the window.
func (m *MemoryThrottle) RecordFailure(_ context.Context, email string) error {
	key := throttleKey(email)
	now := m.opts.now()

	entry, _ := m.entries.Compute(key, func(old failedLogins, loaded bool) (failedLogins, bool) {
		if !loaded || !now.Before(old.expiresAt) || now.Sub(old.windowStart) >= m.opts.window {
			old = failedLogins{windowStart: now}
		}
		old.count++
		old.expiresAt = now.Add(m.opts.window)
		return old, false
	})

	if entry.count > m.opts.maxFailures {
		m.opts.logger.Warn("login throttled", "email", key, "failures", entry.count)
		return ErrTooManyAttempts
	}

	return nil
}

// Reset clears the counter for email
func (m *MemoryThrottle) Reset(_ context.Context, email string) error {
	m.entries.Delete(throttleKey(email))
	return nil
}

// Attempts returns the live failure count for email
func (m *MemoryThrottle) Attempts(email string) int {
	entry, ok := m.entries.Load(throttleKey(email))
	if !ok || !m.opts.now().Before(entry.expiresAt) {
		return 0
	}
	return entry.count
}

// Purge drops expired entries and returns how many were removed
func (m *MemoryThrottle) Purge() int {
	now := m.opts.now()
	removed := 0
	m.entries.Range(func(key string, _ failedLogins) bool {
		m.entries.Compute(key, func(old failedLogins, loaded bool) (failedLogins, bool) {
			if loaded && !now.Before(old.expiresAt) {
				removed++
				return old, true
			}
			return old, !loaded
		})
		return true
	})
	return removed
}

func throttleKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
