package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// UpdateUserMessage carries optional profile changes, empty values are kept
type UpdateUserMessage struct {
	FirstName string
	LastName  string
	Email     string
}

// ChangePasswordMessage carries a password change for the acting user
type ChangePasswordMessage struct {
	OldPassword        string
	NewPassword        string
	ConfirmNewPassword string
}

// ActorFromToken resolves the caller from a bearer token that already
// passed verification.
func ActorFromToken(reader ClaimReader, token string) (Actor, error) {
	id, ok := reader.ExtractUserID(token)
	if !ok {
		return Actor{}, ErrInvalidToken
	}
	role, ok := reader.ExtractRole(token)
	if !ok {
		return Actor{}, ErrInvalidToken
	}
	return Actor{ID: id, Role: role}, nil
}

// NormalizePage applies the pagination defaults and limits
func NormalizePage(page, perPage int) (int, int, error) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		return 0, 0, ErrPerPageTooLarge
	}
	return page, perPage, nil
}

// UsersService implements the role gated user administration.
type UsersService struct {
	users     UserStore
	tokens    RefreshTokenStore
	hasher    PasswordHasher
	activity  ActivitySink
	logger    Logger
	now       func() time.Time
	opTimeout time.Duration
}

// NewUsersService creates the service. tokens may be nil, in which case
// deactivating a user leaves its refresh tokens alone.
func NewUsersService(users UserStore, tokens RefreshTokenStore, hasher PasswordHasher) *UsersService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &UsersService{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		activity:  noopActivitySink{},
		logger:    defLogger{},
		now:       time.Now,
		opTimeout: DefaultOperationTimeout,
	}
}

func (s *UsersService) WithLogger(logger Logger) *UsersService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *UsersService) WithActivitySink(sink ActivitySink) *UsersService {
	s.activity = normalizeActivitySink(sink)
	return s
}

func (s *UsersService) WithClock(now func() time.Time) *UsersService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *UsersService) WithOperationTimeout(timeout time.Duration) *UsersService {
	if timeout > 0 {
		s.opTimeout = timeout
	}
	return s
}

// GetUsersForApproval lists inactive users
func (s *UsersService) GetUsersForApproval(ctx context.Context, page, perPage int) (Page[UserInfo], error) {
	inactive := false
	return s.list(ctx, UserFilter{Active: &inactive, Page: page, PerPage: perPage})
}

// GetUsersList lists users matching search on names or email, optionally
// restricted to role.
func (s *UsersService) GetUsersList(ctx context.Context, search string, role *Role, page, perPage int) (Page[UserInfo], error) {
	if role != nil && !role.IsValid() {
		return Page[UserInfo]{}, ErrInvalidRole
	}
	return s.list(ctx, UserFilter{
		Search:  strings.TrimSpace(search),
		Role:    role,
		Page:    page,
		PerPage: perPage,
	})
}

func (s *UsersService) list(ctx context.Context, filter UserFilter) (Page[UserInfo], error) {
	page, perPage, err := NormalizePage(filter.Page, filter.PerPage)
	if err != nil {
		return Page[UserInfo]{}, err
	}
	filter.Page, filter.PerPage = page, perPage

	var out Page[UserInfo]
	err = runOperation(ctx, "user listing", s.opTimeout, func(ctx context.Context) error {
		users, total, err := s.users.ListUsers(ctx, filter)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to list users")
		}
		out = NewPage(users, total, page, perPage)
		return nil
	})
	return out, err
}

// GetUserByID returns the public view of a user
func (s *UsersService) GetUserByID(ctx context.Context, id int) (UserInfo, error) {
	var info UserInfo
	err := runOperation(ctx, "user lookup", s.opTimeout, func(ctx context.Context) error {
		var err error
		if info, err = s.users.GetUserInfoByID(ctx, id); err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
		}
		return nil
	})
	return info, err
}

// ApproveUser activates an inactive user, optionally assigning role. The
// role may not outrank the actor.
func (s *UsersService) ApproveUser(ctx context.Context, id int, role *Role, actor Actor) error {
	return runOperation(ctx, "user approval", s.opTimeout, func(ctx context.Context) error {
		user, err := s.getUser(ctx, id)
		if err != nil {
			return err
		}

		if user.Active() {
			return ErrUserAlreadyActive
		}

		if role != nil {
			if !role.IsValid() {
				return ErrInvalidRole
			}
			if err := CheckHierarchy(actor.Role, *role, false); err != nil {
				return err
			}
		}

		updated := user.WithActivation(role, true).WithUpdatedAt(s.now().UTC())
		if _, err := s.users.UpdateUser(ctx, updated); err != nil {
			return passThrough(err, "failed to approve user")
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType:  ActivityEventUserStatusChanged,
			Actor:      actor,
			UserID:     user.ID(),
			FromStatus: StatusOf(user.Active()),
			ToStatus:   StatusOf(true),
			Metadata:   map[string]any{"role": updated.Role().String()},
		})
		return nil
	})
}

// UpdateUserInfo changes the profile of user id. Only the user itself or an
// Admin may do so. Returns the stored email.
func (s *UsersService) UpdateUserInfo(ctx context.Context, id int, msg UpdateUserMessage, actor Actor) (string, error) {
	if actor.ID != id && actor.Role != RoleAdmin {
		return "", ErrForbiddenUpdate
	}

	var email string
	err := runOperation(ctx, "user update", s.opTimeout, func(ctx context.Context) error {
		user, err := s.getUser(ctx, id)
		if err != nil {
			return err
		}

		newEmail := strings.TrimSpace(msg.Email)
		if newEmail != "" && !strings.EqualFold(newEmail, user.Email()) {
			if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
				return ErrDuplicateEmail
			} else if !isNotFound(err) {
				return errors.Wrap(err, errors.CategoryInternal, "failed to look up user by email")
			}
		}

		updated := user.WithProfile(msg.FirstName, msg.LastName, newEmail).WithUpdatedAt(s.now().UTC())
		if email, err = s.users.UpdateUser(ctx, updated); err != nil {
			return passThrough(err, "failed to update user")
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType: ActivityEventUserUpdated,
			Actor:     actor,
			UserID:    user.ID(),
		})
		return nil
	})
	return email, err
}

// ChangePassword replaces the actor's own password. Returns the email.
func (s *UsersService) ChangePassword(ctx context.Context, msg ChangePasswordMessage, actor Actor) (string, error) {
	var email string
	err := runOperation(ctx, "password change", s.opTimeout, func(ctx context.Context) error {
		user, err := s.getUser(ctx, actor.ID)
		if err != nil {
			return err
		}

		if err := s.hasher.ComparePasswordAndHash(msg.OldPassword, user.PasswordHash()); err != nil {
			return ErrInvalidOldPassword
		}

		if msg.NewPassword != msg.ConfirmNewPassword {
			return ErrPasswordMismatch
		}

		hash, err := s.hasher.HashPassword(msg.NewPassword)
		if err != nil {
			return passThrough(err, "failed to hash password")
		}

		updated := user.WithPasswordHash(hash).WithUpdatedAt(s.now().UTC())
		if email, err = s.users.UpdateUser(ctx, updated); err != nil {
			return passThrough(err, "failed to update password")
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType: ActivityEventPasswordChanged,
			Actor:     actor,
			UserID:    user.ID(),
		})
		return nil
	})
	return email, err
}

// DeleteUser deactivates user id and revokes its refresh tokens. Users are
// never removed from the store.
func (s *UsersService) DeleteUser(ctx context.Context, id int, actor Actor) error {
	return runOperation(ctx, "user deactivation", s.opTimeout, func(ctx context.Context) error {
		user, err := s.getUser(ctx, id)
		if err != nil {
			return err
		}

		if err := CheckHierarchy(actor.Role, user.Role(), true); err != nil {
			return err
		}

		now := s.now().UTC()
		updated := user.WithActivation(nil, false).WithUpdatedAt(now)
		if _, err := s.users.UpdateUser(ctx, updated); err != nil {
			return passThrough(err, "failed to deactivate user")
		}

		if s.tokens != nil {
			if err := s.tokens.RevokeAllForUser(ctx, user.ID(), now); err != nil {
				return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh tokens")
			}
		}

		emitActivity(ctx, s.activity, s.logger, now, ActivityEvent{
			EventType:  ActivityEventUserStatusChanged,
			Actor:      actor,
			UserID:     user.ID(),
			FromStatus: StatusOf(user.Active()),
			ToStatus:   StatusOf(false),
		})
		return nil
	})
}

func (s *UsersService) getUser(ctx context.Context, id int) (User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}
	return user, nil
}
