package auth

import (
	"strings"
	"time"
)

// User is an immutable user record. Changes go through the With* methods,
// which return a modified copy.
type User struct {
	id           int
	firstName    string
	lastName     string
	email        string
	passwordHash string
	birthDate    time.Time
	role         Role
	status       bool
	createdAt    time.Time
	updatedAt    *time.Time
}

// UserFields is the full set of attributes used to rebuild a stored user.
type UserFields struct {
	ID           int
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	BirthDate    time.Time
	Role         Role
	Status       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// NewUser creates an unpersisted user with the default role, inactive.
func NewUser(firstName, lastName, email string, birthDate time.Time) User {
	return User{
		firstName: strings.TrimSpace(firstName),
		lastName:  strings.TrimSpace(lastName),
		email:     strings.TrimSpace(email),
		birthDate: birthDate,
		role:      DefaultRole,
		status:    false,
		createdAt: time.Now().UTC(),
	}
}

// RestoreUser rebuilds a user from stored fields
func RestoreUser(f UserFields) User {
	return User{
		id:           f.ID,
		firstName:    f.FirstName,
		lastName:     f.LastName,
		email:        f.Email,
		passwordHash: f.PasswordHash,
		birthDate:    f.BirthDate,
		role:         f.Role,
		status:       f.Status,
		createdAt:    f.CreatedAt,
		updatedAt:    f.UpdatedAt,
	}
}

func (u User) ID() int               { return u.id }
func (u User) FirstName() string     { return u.firstName }
func (u User) LastName() string      { return u.lastName }
func (u User) Email() string         { return u.email }
func (u User) PasswordHash() string  { return u.passwordHash }
func (u User) BirthDate() time.Time  { return u.birthDate }
func (u User) Role() Role            { return u.role }
func (u User) Active() bool          { return u.status }
func (u User) CreatedAt() time.Time  { return u.createdAt }
func (u User) UpdatedAt() *time.Time { return u.updatedAt }

// IsPersisted reports whether the user has a store identity
func (u User) IsPersisted() bool {
	return u.id > 0
}

// FullName joins first and last name
func (u User) FullName() string {
	return strings.TrimSpace(u.firstName + " " + u.lastName)
}

// Fields exports the user attributes for storage
func (u User) Fields() UserFields {
	return UserFields{
		ID:           u.id,
		FirstName:    u.firstName,
		LastName:     u.lastName,
		Email:        u.email,
		PasswordHash: u.passwordHash,
		BirthDate:    u.birthDate,
		Role:         u.role,
		Status:       u.status,
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
	}
}

// WithID returns a copy carrying the store identity
func (u User) WithID(id int) User {
	u.id = id
	return u
}

// WithPasswordHash returns a copy with the given hash
func (u User) WithPasswordHash(hash string) User {
	u.passwordHash = hash
	return u
}

// WithActivation returns a copy with the given status. The role is only
// replaced when role is not nil.
func (u User) WithActivation(role *Role, status bool) User {
	if role != nil {
		u.role = *role
	}
	u.status = status
	return u
}

// WithProfile returns a copy with the given names and email. Empty values
// keep the current ones.
func (u User) WithProfile(firstName, lastName, email string) User {
	if v := strings.TrimSpace(firstName); v != "" {
		u.firstName = v
	}
	if v := strings.TrimSpace(lastName); v != "" {
		u.lastName = v
	}
	if v := strings.TrimSpace(email); v != "" {
		u.email = v
	}
	return u
}

// WithUpdatedAt returns a copy stamped with t
func (u User) WithUpdatedAt(t time.Time) User {
	u.updatedAt = &t
	return u
}

// Info projects the user into its public shape
func (u User) Info() UserInfo {
	return UserInfo{
		ID:        u.id,
		FullName:  u.FullName(),
		Email:     u.email,
		Role:      u.role.String(),
		Status:    u.status,
		CreatedAt: u.createdAt,
		UpdatedAt: u.updatedAt,
	}
}

// RefreshToken is a long lived opaque credential bound to one user.
type RefreshToken struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// NewRefreshToken creates a non revoked token for userID
func NewRefreshToken(userID int, token string, expiresAt time.Time) RefreshToken {
	return RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
}

// IsExpired reports whether the token is past its expiry at now
func (r RefreshToken) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// UserInfo is the public projection of a user
type UserInfo struct {
	ID        int        `json:"id"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    bool       `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// TokenBundle is returned by login and refresh
type TokenBundle struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// UserFilter selects users for listing
type UserFilter struct {
	Search  string
	Role    *Role
	Active  *bool
	Page    int
	PerPage int
}

// Offset is the number of rows to skip for the filter page
func (f UserFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// PageMeta describes a page of results
type PageMeta struct {
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// Page is a paginated response
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// NewPage builds a page and computes its meta
func NewPage[T any](data []T, total, page, perPage int) Page[T] {
	if data == nil {
		data = []T{}
	}

	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	return Page[T]{
		Data: data,
		Meta: PageMeta{
			TotalItems:   total,
			TotalPages:   totalPages,
			CurrentPage:  page,
			ItemsPerPage: perPage,
		},
	}
}
