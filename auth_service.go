package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultRefreshTokenTTL is how long a refresh token stays valid after
// login or its last use
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// RegisterMessage carries a self registration request
type RegisterMessage struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	BirthDate time.Time
}

// LoginMessage carries login credentials
type LoginMessage struct {
	Email    string
	Password string
}

// ResetPasswordMessage carries a reset token and the new password
type ResetPasswordMessage struct {
	Token       string
	NewPassword string
}

// AuthService orchestrates registration, login, logout, password reset and
// token refresh. The only state shared between calls is the throttle.
type AuthService struct {
	users      UserStore
	tokens     RefreshTokenStore
	codec      TokenCodec
	hasher     PasswordHasher
	throttle   LoginThrottle
	mailer     EmailSender
	tx         Transactor
	activity   ActivitySink
	logger     Logger
	now        func() time.Time
	refreshTTL time.Duration
	opTimeout  time.Duration
	adminEmail string
}

// NewAuthService wires the workflow with its collaborators. A nil throttle
// falls back to a MemoryThrottle and a nil hasher to bcrypt.
func NewAuthService(users UserStore, tokens RefreshTokenStore, codec TokenCodec, hasher PasswordHasher, throttle LoginThrottle) *AuthService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if throttle == nil {
		throttle = NewMemoryThrottle()
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		hasher:     hasher,
		throttle:   throttle,
		mailer:     NewLogMailer(nil),
		tx:         noopTransactor{},
		activity:   noopActivitySink{},
		logger:     defLogger{},
		now:        time.Now,
		refreshTTL: DefaultRefreshTokenTTL,
		opTimeout:  DefaultOperationTimeout,
	}
}

func (s *AuthService) WithLogger(logger Logger) *AuthService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *AuthService) WithActivitySink(sink ActivitySink) *AuthService {
	s.activity = normalizeActivitySink(sink)
	return s
}

func (s *AuthService) WithEmailSender(mailer EmailSender) *AuthService {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// WithTransactor makes registration run its lookup and insert in one unit
// of work.
func (s *AuthService) WithTransactor(tx Transactor) *AuthService {
	if tx != nil {
		s.tx = tx
	}
	return s
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *AuthService) WithRefreshTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.refreshTTL = ttl
	}
	return s
}

func (s *AuthService) WithOperationTimeout(timeout time.Duration) *AuthService {
	if timeout > 0 {
		s.opTimeout = timeout
	}
	return s
}

// WithDefaultAdminEmail names an email that is promoted to an active Admin
// on registration, regardless of how many users exist.
func (s *AuthService) WithDefaultAdminEmail(email string) *AuthService {
	s.adminEmail = strings.TrimSpace(email)
	return s
}

// Register creates an inactive user with the default role. The first user
// and the default admin email become active Admins.
func (s *AuthService) Register(ctx context.Context, msg RegisterMessage) (User, error) {
	var created User
	err := runOperation(ctx, "user registration", s.opTimeout, func(ctx context.Context) error {
		hash, err := s.hasher.HashPassword(msg.Password)
		if err != nil {
			return passThrough(err, "failed to hash password")
		}

		user := NewUser(msg.FirstName, msg.LastName, msg.Email, msg.BirthDate).
			WithPasswordHash(hash)

		err = s.tx.Transact(ctx, func(ctx context.Context) error {
			if _, err := s.users.GetByEmail(ctx, user.Email()); err == nil {
				return ErrDuplicateEmail
			} else if !isNotFound(err) {
				return errors.Wrap(err, errors.CategoryInternal, "failed to look up user by email")
			}

			count, err := s.users.CountUsers(ctx)
			if err != nil {
				return errors.Wrap(err, errors.CategoryInternal, "failed to count users")
			}

			if count == 0 || s.isDefaultAdmin(user.Email()) {
				admin := RoleAdmin
				user = user.WithActivation(&admin, true)
			}

			created, err = s.users.AddUser(ctx, user)
			return passThrough(err, "could not create user")
		})
		return passThrough(err, "user registration transaction failed")
	})
	if err != nil {
		return User{}, err
	}

	s.logger.Info("user registered", "user_id", created.ID(), "role", created.Role().String())
	emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     Actor{ID: created.ID(), Role: created.Role()},
		UserID:    created.ID(),
		ToStatus:  StatusOf(created.Active()),
	})

	return created, nil
}

// Login verifies credentials and returns an access token with a new
// refresh token. Unknown emails and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, msg LoginMessage) (TokenBundle, error) {
	var bundle TokenBundle
	err := runOperation(ctx, "login", s.opTimeout, func(ctx context.Context) error {
		user, err := s.users.GetByEmail(ctx, msg.Email)
		if err != nil {
			if isNotFound(err) {
				s.loginFailed(ctx, 0, msg.Email, "unknown email")
				return ErrInvalidCredentials
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
		}

		if err := s.hasher.ComparePasswordAndHash(msg.Password, user.PasswordHash()); err != nil {
			s.loginFailed(ctx, user.ID(), msg.Email, "password mismatch")
			if terr := s.throttle.RecordFailure(ctx, msg.Email); terr != nil {
				if errors.Is(terr, ErrTooManyAttempts) {
					return ErrTooManyAttempts
				}
				s.logger.Error("failed to record login failure", "error", terr)
			}
			return ErrInvalidCredentials
		}

		if !user.Active() {
			s.loginFailed(ctx, user.ID(), msg.Email, "inactive user")
			return ErrInactiveUser
		}

		if bundle, err = s.codec.IssueAccessToken(user, true); err != nil {
			return passThrough(err, "failed to issue access token")
		}

		refresh := NewRefreshToken(user.ID(), bundle.RefreshToken, s.now().Add(s.refreshTTL))
		if _, err := s.tokens.Add(ctx, refresh); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to store refresh token")
		}

		if err := s.throttle.Reset(ctx, msg.Email); err != nil {
			s.logger.Warn("failed to reset login failures", "error", err)
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType: ActivityEventLoginSuccess,
			Actor:     Actor{ID: user.ID(), Role: user.Role()},
			UserID:    user.ID(),
		})
		return nil
	})
	if err != nil {
		return TokenBundle{}, err
	}
	return bundle, nil
}

// Logout revokes the refresh token held by the bearer's user. The bearer
// token is trusted and only decoded. Returns 0 and no error when the bearer
// carries no user id, and the user id when no matching token is live.
func (s *AuthService) Logout(ctx context.Context, refreshToken, bearerToken string) (int, error) {
	userID, ok := s.codec.ExtractUserID(bearerToken)
	if !ok {
		return 0, nil
	}

	err := runOperation(ctx, "logout", s.opTimeout, func(ctx context.Context) error {
		stored, err := s.tokens.FindByTokenAndUser(ctx, refreshToken, userID)
		if err != nil {
			if isNotFound(err) {
				s.logger.Debug("logout without live refresh token", "user_id", userID)
				return nil
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to find refresh token")
		}

		if err := s.tokens.Revoke(ctx, stored.ID, s.now().UTC()); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType: ActivityEventLogout,
			Actor:     Actor{ID: userID},
			UserID:    userID,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// ForgotPassword issues a password reset token for email and hands it to
// the email sender. The token is also returned to the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	var token string
	err := runOperation(ctx, "password reset request", s.opTimeout, func(ctx context.Context) error {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if isNotFound(err) {
				return ErrInvalidEmail
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for password reset")
		}

		if token, err = s.codec.IssuePasswordResetToken(user); err != nil {
			return passThrough(err, "failed to issue password reset token")
		}

		if err := s.mailer.SendPasswordResetEmail(ctx, user.Email(), token); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to deliver password reset email").
				WithTextCode(TextCodeDeliveryFailed)
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType: ActivityEventPasswordResetRequest,
			UserID:    user.ID(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword replaces the password of the user named by a valid reset
// token and returns the user email.
func (s *AuthService) ResetPassword(ctx context.Context, msg ResetPasswordMessage) (string, error) {
	email, ok := s.codec.ValidatePasswordResetToken(msg.Token)
	if !ok {
		return "", ErrInvalidToken
	}

	var updated string
	err := runOperation(ctx, "password reset", s.opTimeout, func(ctx context.Context) error {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if isNotFound(err) {
				return ErrInvalidEmail
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for password reset")
		}

		hash, err := s.hasher.HashPassword(msg.NewPassword)
		if err != nil {
			return passThrough(err, "failed to hash password")
		}

		user = user.WithPasswordHash(hash).WithUpdatedAt(s.now().UTC())
		if updated, err = s.users.UpdateUser(ctx, user); err != nil {
			return passThrough(err, "failed to update user password")
		}

		emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
			EventType: ActivityEventPasswordResetSuccess,
			Actor:     Actor{ID: user.ID(), Role: user.Role()},
			UserID:    user.ID(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return updated, nil
}

// RefreshOneToken exchanges a live refresh token for a new access token.
// The refresh value is kept and its expiry pushed out by the refresh TTL.
func (s *AuthService) RefreshOneToken(ctx context.Context, refreshToken string) (TokenBundle, error) {
	var bundle TokenBundle
	err := runOperation(ctx, "token refresh", s.opTimeout, func(ctx context.Context) error {
		stored, err := s.tokens.FindByToken(ctx, refreshToken)
		if err != nil {
			if isNotFound(err) {
				return ErrInvalidRefreshToken
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to find refresh token")
		}

		now := s.now()
		if stored.Revoked || stored.IsExpired(now) {
			return ErrInvalidRefreshToken
		}

		user, err := s.users.GetByID(ctx, stored.UserID)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve refresh token owner")
		}

		if !user.Active() {
			return ErrInactiveUser
		}

		if bundle, err = s.codec.IssueAccessToken(user, false); err != nil {
			return passThrough(err, "failed to issue access token")
		}

		if err := s.tokens.UpdateExpiry(ctx, stored.ID, now.Add(s.refreshTTL)); err != nil {
			// revoked after the lookup
			if isNotFound(err) {
				return ErrInvalidRefreshToken
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to extend refresh token")
		}

		bundle.RefreshToken = stored.Token

		emitActivity(ctx, s.activity, s.logger, now, ActivityEvent{
			EventType: ActivityEventTokenRefreshed,
			Actor:     Actor{ID: user.ID(), Role: user.Role()},
			UserID:    user.ID(),
		})
		return nil
	})
	if err != nil {
		return TokenBundle{}, err
	}
	return bundle, nil
}

// ValidateToken reports whether token is a valid access token
func (s *AuthService) ValidateToken(token string) bool {
	return s.codec.ValidateAccessToken(token)
}

func (s *AuthService) isDefaultAdmin(email string) bool {
	return s.adminEmail != "" && strings.EqualFold(s.adminEmail, strings.TrimSpace(email))
}

func (s *AuthService) loginFailed(ctx context.Context, userID int, email, reason string) {
	s.logger.Debug("login failed", "reason", reason)
	emitActivity(ctx, s.activity, s.logger, s.now(), ActivityEvent{
		EventType: ActivityEventLoginFailure,
		UserID:    userID,
		Metadata: map[string]any{
			"identifier": email,
			"reason":     reason,
		},
	})
}
