package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts       = "TOO_MANY_ATTEMPTS"
	TextCodeInactiveUser          = "INACTIVE_USER"
	TextCodeInvalidEmail          = "INVALID_EMAIL"
	TextCodeInvalidToken          = "INVALID_TOKEN"
	TextCodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeInsufficientPrivilege = "INSUFFICIENT_PRIVILEGE"
	TextCodeUserAlreadyActive     = "USER_ALREADY_ACTIVE"
	TextCodeInvalidRole           = "INVALID_ROLE"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeInvalidOldPassword    = "INVALID_OLD_PASSWORD"
	TextCodePasswordMismatch      = "PASSWORD_MISMATCH"
	TextCodePerPageTooLarge       = "PER_PAGE_TOO_LARGE"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
	TextCodeDeliveryFailed        = "EMAIL_DELIVERY_FAILED"
)

// ErrDuplicateEmail is returned when the email already belongs to a user.
var ErrDuplicateEmail = errors.New("email already used", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid login attempt", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyAttempts is returned once the failed login window is exhausted.
var ErrTooManyAttempts = errors.New("too many failed login attempts, please try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrInactiveUser is returned when the account has not been approved yet.
var ErrInactiveUser = errors.New("inactive user", errors.CategoryAuth).
	WithTextCode(TextCodeInactiveUser).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidEmail is returned when an email does not resolve to a user.
var ErrInvalidEmail = errors.New("invalid email", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is returned when a password reset token fails validation.
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRefreshToken is returned for unknown, revoked or expired refresh tokens.
var ErrInvalidRefreshToken = errors.New("invalid refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefreshToken).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when a user lookup by id fails.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrInsufficientPrivilege is returned when assigning a role above the actor's own.
var ErrInsufficientPrivilege = errors.New("you cannot assign a role that is higher than yours", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPrivilege).
	WithCode(errors.CodeForbidden)

// ErrInsufficientPrivilegeDelete is returned when deactivating a user above the actor's role.
var ErrInsufficientPrivilegeDelete = errors.New("you cannot deactivate a user with higher role than yours", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPrivilege).
	WithCode(errors.CodeForbidden)

// ErrUserAlreadyActive is returned when approving an active user.
var ErrUserAlreadyActive = errors.New("user already active", errors.CategoryConflict).
	WithTextCode(TextCodeUserAlreadyActive).
	WithCode(errors.CodeConflict)

// ErrInvalidRole is returned for role ordinals outside the defined set.
var ErrInvalidRole = errors.New("invalid role", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrForbiddenUpdate is returned when a non admin updates someone else.
var ErrForbiddenUpdate = errors.New("you have no permissions to update other user's information", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrInvalidOldPassword is returned when the current password does not verify.
var ErrInvalidOldPassword = errors.New("invalid old password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidOldPassword).
	WithCode(errors.CodeUnauthorized)

// ErrPasswordMismatch is returned when the new password and its confirmation differ.
var ErrPasswordMismatch = errors.New("new password and confirmation are not equal", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrPerPageTooLarge is returned when a page size exceeds MaxPerPage.
var ErrPerPageTooLarge = errors.New("the maximum number of items per page is 100", errors.CategoryBadInput).
	WithTextCode(TextCodePerPageTooLarge).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned by Verify when the token is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned by Verify for any other validation failure
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be an empty string", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword wraps bcrypt's mismatch error
var ErrMismatchedHashAndPassword = errors.New("hashed password does not match the given password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// HTTPStatus resolves the response status for an error returned by
// this package. Unknown errors map to 500.
func HTTPStatus(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return errors.CodeInternal
	}

	if richErr.Code != 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return errors.CodeBadRequest
	case errors.CategoryAuth:
		return errors.CodeUnauthorized
	case errors.CategoryAuthz:
		return errors.CodeForbidden
	case errors.CategoryNotFound:
		return errors.CodeNotFound
	case errors.CategoryConflict:
		return errors.CodeConflict
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return errors.CodeInternal
	}
}
