package jwtware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-service"
)

const (
	DefaultTokenLookup = "header:" + fiber.HeaderAuthorization
	DefaultAuthScheme  = "Bearer"
)

var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT", errors.CategoryBadInput).
	WithTextCode("MISSING_TOKEN").
	WithCode(errors.CodeBadRequest)

var ErrRoleNotAllowed = errors.New("access denied: role not allowed", errors.CategoryAuthz).
	WithTextCode("ROLE_NOT_ALLOWED").
	WithCode(errors.CodeForbidden)

// ValidationListener is invoked after a token has been validated but before authorization checks.
type ValidationListener func(c *fiber.Ctx, claims *auth.AccessClaims) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// ContextKey holds the verified *auth.AccessClaims in c.Locals
	ContextKey string
	// TokenContextKey holds the raw bearer token in c.Locals
	TokenContextKey string
	TokenLookup     string
	AuthScheme      string
	// Verifier is required for token validation
	Verifier auth.Verifier
	// AllowedRoles restricts access to tokens carrying one of the roles.
	// Empty means any authenticated role.
	AllowedRoles []auth.Role

	// ContextEnricher is an optional function to propagate claims to the
	// request's user context.
	ContextEnricher func(c context.Context, claims *auth.AccessClaims) context.Context

	ValidationListeners []ValidationListener
}

// New returns a fiber middleware that verifies the bearer token and
// enforces the role allow-list.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Verifier.Verify(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := cfg.runValidationListeners(c, claims); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if len(cfg.AllowedRoles) > 0 && !claims.HasAnyRole(cfg.AllowedRoles...) {
			return cfg.ErrorHandler(c, ErrRoleNotAllowed)
		}

		c.Locals(cfg.ContextKey, claims)
		c.Locals(cfg.TokenContextKey, raw)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return cfg.SuccessHandler(c)
	}
}

// RequireRoles builds a middleware from base that only admits roles
func RequireRoles(base Config, roles ...auth.Role) fiber.Handler {
	base.AllowedRoles = roles
	return New(base)
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.Verifier == nil {
		panic("AUTH: JWT middleware configuration: Verifier is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.LocalsClaimsKey
	}

	if cfg.TokenContextKey == "" {
		cfg.TokenContextKey = auth.LocalsTokenKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = DefaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}

	return cfg
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrJWTMissingOrMalformed):
		return c.Status(fiber.StatusBadRequest).JSON(auth.ErrorResponse{
			Error:   ErrJWTMissingOrMalformed.TextCode,
			Message: ErrJWTMissingOrMalformed.Message,
		})
	case errors.Is(err, ErrRoleNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(auth.ErrorResponse{
			Error:   ErrRoleNotAllowed.TextCode,
			Message: ErrRoleNotAllowed.Message,
		})
	default:
		return c.Status(fiber.StatusUnauthorized).JSON(auth.ErrorResponse{
			Error:   auth.TextCodeInvalidToken,
			Message: "Invalid or expired token",
		})
	}
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, claims *auth.AccessClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return err
		}
	}
	return nil
}

// ExtractRawToken returns the first token found by extractors
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	err := error(ErrJWTMissingOrMalformed)
	for _, extractor := range extractors {
		var raw string
		raw, err = extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
	}
	return "", err
}

// ClaimsFromContext returns the verified claims stored by the middleware
func ClaimsFromContext(c *fiber.Ctx) (*auth.AccessClaims, bool) {
	claims, ok := c.Locals(auth.LocalsClaimsKey).(*auth.AccessClaims)
	return claims, ok && claims != nil
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// GetExtractors parses a token lookup string such as
// "header:Authorization,cookie:jwt,query:auth_token,param:token".
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := DefaultAuthScheme
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

// jwtFromHeader returns a function that extracts token from the request header.
// The scheme is matched case-insensitively.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		if authScheme == "" {
			if a = strings.TrimSpace(a); a == "" {
				return "", ErrJWTMissingOrMalformed
			}
			return a, nil
		}

		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
