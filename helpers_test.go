package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-service"
)

const testSecret = "test-signing-secret-with-enough-bytes"

var errNotFound = errors.New("record not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTokenService(t *testing.T, clock *testClock) *auth.TokenService {
	t.Helper()
	keys, err := auth.NewHMACKeys([]byte(testSecret), "test")
	require.NoError(t, err)
	ts := auth.NewTokenService(keys, "auth-service", []string{"auth-service"}, 600)
	if clock != nil {
		ts = ts.WithClock(clock.Now)
	}
	return ts
}

// plainHasher skips bcrypt so workflow tests stay fast
type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", auth.ErrNoEmptyString
	}
	return "plain:" + password, nil
}

func (plainHasher) ComparePasswordAndHash(password, hash string) error {
	if !strings.HasPrefix(hash, "plain:") || hash[len("plain:"):] != password {
		return auth.ErrMismatchedHashAndPassword
	}
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

func seedUser(t *testing.T, users *memUsers, first, email, password string, role auth.Role, active bool) auth.User {
	t.Helper()
	hash, err := plainHasher{}.HashPassword(password)
	require.NoError(t, err)
	user := auth.NewUser(first, "Tester", email, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)).
		WithPasswordHash(hash).
		WithActivation(&role, active)
	stored, err := users.AddUser(context.Background(), user)
	require.NoError(t, err)
	return stored
}
