package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-service"
)

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockEmailSender implements auth.EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) AddUser(ctx context.Context, user auth.User) (auth.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(auth.User), args.Error(1)
}

func (m *MockUserStore) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(auth.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int) (auth.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(auth.User), args.Error(1)
}

func (m *MockUserStore) UpdateUser(ctx context.Context, user auth.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserStore) ListUsers(ctx context.Context, filter auth.UserFilter) ([]auth.UserInfo, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]auth.UserInfo), args.Int(1), args.Error(2)
}

func (m *MockUserStore) GetUserInfoByID(ctx context.Context, id int) (auth.UserInfo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(auth.UserInfo), args.Error(1)
}

// MockRefreshTokenStore implements auth.RefreshTokenStore
type MockRefreshTokenStore struct {
	mock.Mock
}

func (m *MockRefreshTokenStore) Add(ctx context.Context, token auth.RefreshToken) (auth.RefreshToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenStore) FindByToken(ctx context.Context, token string) (auth.RefreshToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenStore) FindByTokenAndUser(ctx context.Context, token string, userID int) (auth.RefreshToken, error) {
	args := m.Called(ctx, token, userID)
	return args.Get(0).(auth.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenStore) UpdateExpiry(ctx context.Context, id int, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}

func (m *MockRefreshTokenStore) Revoke(ctx context.Context, id int, revokedAt time.Time) error {
	args := m.Called(ctx, id, revokedAt)
	return args.Error(0)
}

func (m *MockRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID int, revokedAt time.Time) error {
	args := m.Called(ctx, userID, revokedAt)
	return args.Error(0)
}

// memUsers is an in-memory auth.UserStore for scenario tests
type memUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int]auth.User{}}
}

func (s *memUsers) AddUser(_ context.Context, user auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if strings.EqualFold(u.Email(), user.Email()) {
			return auth.User{}, auth.ErrDuplicateEmail
		}
	}
	s.nextID++
	user = user.WithID(s.nextID)
	s.byID[user.ID()] = user
	return user, nil
}

func (s *memUsers) CountUsers(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID), nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if strings.EqualFold(u.Email(), strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (s *memUsers) GetByID(_ context.Context, id int) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (s *memUsers) UpdateUser(_ context.Context, user auth.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[user.ID()]; !ok {
		return "", auth.ErrUserNotFound
	}
	s.byID[user.ID()] = user
	return user.Email(), nil
}

func (s *memUsers) ListUsers(_ context.Context, filter auth.UserFilter) ([]auth.UserInfo, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []auth.UserInfo
	for id := 1; id <= s.nextID; id++ {
		u, ok := s.byID[id]
		if !ok {
			continue
		}
		if filter.Active != nil && u.Active() != *filter.Active {
			continue
		}
		if filter.Role != nil && u.Role() != *filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.FirstName()), search) &&
			!strings.Contains(strings.ToLower(u.LastName()), search) &&
			!strings.Contains(strings.ToLower(u.Email()), search) {
			continue
		}
		matched = append(matched, u.Info())
	}

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if filter.PerPage <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *memUsers) GetUserInfoByID(ctx context.Context, id int) (auth.UserInfo, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return auth.UserInfo{}, err
	}
	return u.Info(), nil
}

func (s *memUsers) mustGet(id int) auth.User {
	u, err := s.GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return u
}

// memTokens is an in-memory auth.RefreshTokenStore
type memTokens struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]auth.RefreshToken
}

func newMemTokens() *memTokens {
	return &memTokens{rows: map[int]auth.RefreshToken{}}
}

func (s *memTokens) Add(_ context.Context, token auth.RefreshToken) (auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	token.ID = s.nextID
	s.rows[token.ID] = token
	return token, nil
}

func (s *memTokens) FindByToken(_ context.Context, token string) (auth.RefreshToken, error) {
	return s.find(func(r auth.RefreshToken) bool { return r.Token == token })
}

func (s *memTokens) FindByTokenAndUser(_ context.Context, token string, userID int) (auth.RefreshToken, error) {
	return s.find(func(r auth.RefreshToken) bool { return r.Token == token && r.UserID == userID })
}

func (s *memTokens) find(match func(auth.RefreshToken) bool) (auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := s.nextID; id > 0; id-- {
		r, ok := s.rows[id]
		if ok && !r.Revoked && match(r) {
			return r, nil
		}
	}
	return auth.RefreshToken{}, errNotFound
}

func (s *memTokens) UpdateExpiry(_ context.Context, id int, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return errNotFound
	}
	r.ExpiresAt = expiresAt
	s.rows[id] = r
	return nil
}

func (s *memTokens) Revoke(_ context.Context, id int, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return errNotFound
	}
	r.Revoked = true
	r.RevokedAt = &revokedAt
	s.rows[id] = r
	return nil
}

func (s *memTokens) RevokeAllForUser(_ context.Context, userID int, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rows {
		if r.UserID == userID && !r.Revoked {
			r.Revoked = true
			r.RevokedAt = &revokedAt
			s.rows[id] = r
		}
	}
	return nil
}

func (s *memTokens) live(userID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && !r.Revoked {
			n++
		}
	}
	return n
}
