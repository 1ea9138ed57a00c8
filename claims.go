package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimUserID          = "id"
	ClaimEmail           = "email"
	ClaimFirstName       = "firstName"
	ClaimLastName        = "lastName"
	ClaimRole            = "role"
	ClaimIsPasswordReset = "isPasswordReset"
)

// AccessClaims are carried by bearer tokens. The role is encoded as the
// role ordinal string.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserRole  string `json:"role"`
}

// UserID parses the id claim
func (c *AccessClaims) UserID() (int, bool) {
	return parseUserID(c.UID)
}

// Role parses the role claim
func (c *AccessClaims) Role() (Role, bool) {
	return ParseRole(c.UserRole)
}

// HasAnyRole reports whether the role claim is one of roles
func (c *AccessClaims) HasAnyRole(roles ...Role) bool {
	role, ok := c.Role()
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// PasswordResetClaims are carried by password reset tokens
type PasswordResetClaims struct {
	jwt.RegisteredClaims
	Email           string `json:"email"`
	IsPasswordReset bool   `json:"isPasswordReset"`
}

func accessClaimsFor(user User) AccessClaims {
	return AccessClaims{
		UID:       strconv.Itoa(user.ID()),
		Email:     user.Email(),
		FirstName: user.FirstName(),
		LastName:  user.LastName(),
		UserRole:  user.Role().Ordinal(),
	}
}

func parseUserID(raw any) (int, bool) {
	switch v := raw.(type) {
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return id, true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
