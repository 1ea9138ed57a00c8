package auth

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultTokenExpiration is the access token lifetime in seconds
	DefaultTokenExpiration = 600
	// RefreshTokenBytes is the entropy of a refresh token value
	RefreshTokenBytes = 32
)

// TokenService signs and verifies bearer and password reset tokens.
type TokenService struct {
	keys      *SigningKeys
	issuer    string
	audience  jwt.ClaimStrings
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
	random    io.Reader
	logger    Logger
}

var _ TokenCodec = (*TokenService)(nil)

// NewTokenService creates a TokenService. expiration is in seconds, values
// below one fall back to DefaultTokenExpiration.
func NewTokenService(keys *SigningKeys, issuer string, audience []string, expiration int) *TokenService {
	if expiration < 1 {
		expiration = DefaultTokenExpiration
	}

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	ttl := time.Duration(expiration) * time.Second

	return &TokenService{
		keys:      keys,
		issuer:    issuer,
		audience:  aud,
		accessTTL: ttl,
		resetTTL:  ttl,
		now:       time.Now,
		random:    rand.Reader,
		logger:    defLogger{},
	}
}

// NewTokenServiceFromConfig loads the signing keys and token settings from cfg
func NewTokenServiceFromConfig(cfg Config) (*TokenService, error) {
	keys, err := LoadSigningKeys(cfg)
	if err != nil {
		return nil, err
	}

	ts := NewTokenService(keys, cfg.GetIssuer(), cfg.GetAudience(), cfg.GetTokenExpiration())
	if exp := cfg.GetResetTokenExpiration(); exp > 0 {
		ts.resetTTL = time.Duration(exp) * time.Second
	}
	return ts, nil
}

func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// WithClock overrides the time source used to stamp and check tokens
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// WithRandom overrides the entropy source for refresh token values
func (ts *TokenService) WithRandom(r io.Reader) *TokenService {
	if r != nil {
		ts.random = r
	}
	return ts
}

// AccessTTL returns the access token lifetime
func (ts *TokenService) AccessTTL() time.Duration {
	return ts.accessTTL
}

// IssueAccessToken signs an access token for user and, when includeRefresh
// is set, generates a refresh token value the caller must persist.
func (ts *TokenService) IssueAccessToken(user User, includeRefresh bool) (TokenBundle, error) {
	if !user.IsPersisted() {
		return TokenBundle{}, errors.New("cannot issue a token for an unpersisted user", errors.CategoryBadInput)
	}

	claims := accessClaimsFor(user)
	claims.RegisteredClaims = ts.registeredClaims(ts.accessTTL)

	signed, err := ts.keys.sign(&claims)
	if err != nil {
		return TokenBundle{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	bundle := TokenBundle{
		Token:     signed,
		ExpiresIn: int64(ts.accessTTL / time.Second),
	}

	if includeRefresh {
		if bundle.RefreshToken, err = GenerateRefreshToken(ts.random); err != nil {
			return TokenBundle{}, err
		}
	}

	return bundle, nil
}

// IssuePasswordResetToken signs a token that only carries the email and
// the password reset marker.
func (ts *TokenService) IssuePasswordResetToken(user User) (string, error) {
	if user.Email() == "" {
		return "", errors.New("cannot issue a reset token without email", errors.CategoryBadInput)
	}

	claims := &PasswordResetClaims{
		RegisteredClaims: ts.registeredClaims(ts.resetTTL),
		Email:            user.Email(),
		IsPasswordReset:  true,
	}

	signed, err := ts.keys.sign(claims)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Verify parses and validates an access token, returning its claims.
// Tokens without an id claim, such as password reset tokens, are rejected.
func (ts *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.keys.keyfunc, ts.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if _, ok := claims.UserID(); !ok {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// ValidateAccessToken never fails outward, any problem yields false
func (ts *TokenService) ValidateAccessToken(tokenString string) bool {
	if _, err := ts.Verify(tokenString); err != nil {
		ts.logger.Debug("access token rejected", "error", err)
		return false
	}
	return true
}

// ValidatePasswordResetToken returns the embedded email when the token
// verifies and carries the reset marker.
func (ts *TokenService) ValidatePasswordResetToken(tokenString string) (string, bool) {
	claims := &PasswordResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.keys.keyfunc, ts.parserOptions()...)
	if err != nil || !token.Valid {
		ts.logger.Debug("password reset token rejected", "error", err)
		return "", false
	}

	if !claims.IsPasswordReset || strings.TrimSpace(claims.Email) == "" {
		return "", false
	}

	return claims.Email, true
}

// ExtractUserID reads the id claim without verifying the signature.
func (ts *TokenService) ExtractUserID(tokenString string) (int, bool) {
	claims, ok := unverifiedClaims(tokenString)
	if !ok {
		return 0, false
	}

	raw, ok := claims[ClaimUserID]
	if !ok {
		return 0, false
	}
	return parseUserID(raw)
}

// ExtractRole reads the role claim without verifying the signature. The
// claim name is matched case-insensitively.
func (ts *TokenService) ExtractRole(tokenString string) (Role, bool) {
	claims, ok := unverifiedClaims(tokenString)
	if !ok {
		return 0, false
	}

	for name, raw := range claims {
		if !strings.EqualFold(name, ClaimRole) {
			continue
		}
		switch v := raw.(type) {
		case string:
			return ParseRole(v)
		case float64:
			r := Role(int(v))
			return r, r.IsValid() && float64(int(v)) == v
		}
	}

	return 0, false
}

func (ts *TokenService) registeredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := ts.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    ts.issuer,
		Audience:  ts.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (ts *TokenService) parserOptions() []jwt.ParserOption {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.keys.Method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		// tokens carry every configured audience, verification pins the primary one
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}
	return parserOptions
}

func unverifiedClaims(tokenString string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// GenerateRefreshToken returns RefreshTokenBytes random bytes, base64 encoded
func GenerateRefreshToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, RefreshTokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
