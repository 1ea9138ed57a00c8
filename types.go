package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds token and workflow options
type Config interface {
	GetIssuer() string
	GetAudience() []string
	GetSigningMethod() string
	GetSigningKey() string
	GetPrivateKey() string
	GetPublicKey() string
	GetKeyID() string
	GetVerificationKeys() map[string]string
	GetTokenExpiration() int
	GetResetTokenExpiration() int
	GetRefreshTokenTTL() time.Duration
	GetDefaultAdminEmail() string
}

// Verifier performs full token verification: signature, issuer,
// audience and expiry.
type Verifier interface {
	ValidateAccessToken(token string) bool
	ValidatePasswordResetToken(token string) (string, bool)
	Verify(token string) (*AccessClaims, error)
}

// ClaimReader decodes claims WITHOUT checking the signature. Only call it
// with tokens that already went through a Verifier, e.g. the bearer token
// of a request that passed the jwtware middleware.
type ClaimReader interface {
	ExtractUserID(token string) (int, bool)
	ExtractRole(token string) (Role, bool)
}

// TokenIssuer mints access and password reset tokens.
type TokenIssuer interface {
	IssueAccessToken(user User, includeRefresh bool) (TokenBundle, error)
	IssuePasswordResetToken(user User) (string, error)
}

// TokenCodec is the full token capability set.
type TokenCodec interface {
	TokenIssuer
	Verifier
	ClaimReader
}

// UserStore persists users.
type UserStore interface {
	AddUser(ctx context.Context, user User) (User, error)
	CountUsers(ctx context.Context) (int, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id int) (User, error)
	UpdateUser(ctx context.Context, user User) (string, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]UserInfo, int, error)
	GetUserInfoByID(ctx context.Context, id int) (UserInfo, error)
}

// RefreshTokenStore persists refresh tokens. Lookups only return
// tokens that have not been revoked.
type RefreshTokenStore interface {
	Add(ctx context.Context, token RefreshToken) (RefreshToken, error)
	FindByToken(ctx context.Context, token string) (RefreshToken, error)
	FindByTokenAndUser(ctx context.Context, token string, userID int) (RefreshToken, error)
	UpdateExpiry(ctx context.Context, id int, expiresAt time.Time) error
	Revoke(ctx context.Context, id int, revokedAt time.Time) error
	RevokeAllForUser(ctx context.Context, userID int, revokedAt time.Time) error
}

// Transactor runs fn inside a unit of work. Stores used within fn must pick
// the transaction up from ctx.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// EmailSender delivers password reset notifications
type EmailSender interface {
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// LoginThrottle counts failed logins per email.
type LoginThrottle interface {
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type noopTransactor struct{}

func (noopTransactor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
