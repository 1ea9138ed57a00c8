package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// BirthDateLayout is the accepted birth date format
const BirthDateLayout = "2006-01-02"

type AuthControllerRoutes struct {
	Register       string
	Login          string
	Logout         string
	ForgotPassword string
	ResetPassword  string
	ValidateToken  string
	RefreshToken   string
}

type AuthController struct {
	Debug   bool
	Logger  Logger
	Service *AuthService
	Routes  *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthControllerLogger sets the controller logger
func WithAuthControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

// WithAuthControllerDebug dumps request payloads, secrets excluded
func WithAuthControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func NewAuthController(service *AuthService, opts ...AuthControllerOption) *AuthController {
	if service == nil {
		panic("Missing AuthService in auth controller...")
	}

	c := &AuthController{
		Logger:  defLogger{},
		Service: service,
		Routes: &AuthControllerRoutes{
			Register:       "/register",
			Login:          "/login",
			Logout:         "/logout",
			ForgotPassword: "/forgotPassword",
			ResetPassword:  "/resetPassword",
			ValidateToken:  "/validateToken",
			RefreshToken:   "/refreshToken",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// RegisterRoutes mounts the auth endpoints on r, usually the /api/auth group
func (a *AuthController) RegisterRoutes(r fiber.Router) {
	r.Post(a.Routes.Register, a.Register).Name("auth.register")
	r.Post(a.Routes.Login, a.Login).Name("auth.login")
	r.Post(a.Routes.Logout, a.Logout).Name("auth.logout")
	r.Post(a.Routes.ForgotPassword, a.ForgotPassword).Name("auth.forgot-password")
	r.Post(a.Routes.ResetPassword, a.ResetPassword).Name("auth.reset-password")
	r.Post(a.Routes.ValidateToken, a.ValidateToken).Name("auth.validate-token")
	r.Post(a.Routes.RefreshToken, a.RefreshToken).Name("auth.refresh-token")
}

// RegisterRequest payload
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	BirthDate string `json:"birthDate"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
			validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
			validation.Field(&r.Email, validation.Required, is.EmailFormat),
			validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
			validation.Field(&r.BirthDate, validation.Required, validation.Date(BirthDateLayout)),
		)
	}, "Invalid registration payload"); err != nil {
		return err
	}
	return nil
}

func (r RegisterRequest) message() RegisterMessage {
	birthDate, _ := time.Parse(BirthDateLayout, r.BirthDate)
	return RegisterMessage{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		BirthDate: birthDate,
	}
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.EmailFormat),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid login request payload"); err != nil {
		return err
	}
	return nil
}

// RefreshTokenRequest is used by logout and refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate will run validation rules
func (r RefreshTokenRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.RefreshToken, validation.Required),
		)
	}, "Invalid refresh token payload"); err != nil {
		return err
	}
	return nil
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.EmailFormat),
		)
	}, "Invalid forgot password payload"); err != nil {
		return err
	}
	return nil
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Token, validation.Required),
			validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 128)),
		)
	}, "Invalid reset password payload"); err != nil {
		return err
	}
	return nil
}

// ValidateTokenRequest payload
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse reports token validity
type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

type validatable interface {
	Validate() error
}

func bindAndValidate(c *fiber.Ctx, payload validatable) error {
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}
	return payload.Validate()
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("register payload", "email", payload.Email, "first_name", payload.FirstName)
	}

	user, err := a.Service.Register(c.UserContext(), payload.message())
	if err != nil {
		return err
	}

	a.Logger.Info("user has registered successfully", "user_id", user.ID())
	return c.Status(fiber.StatusCreated).JSON(user.Info())
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	bundle, err := a.Service.Login(c.UserContext(), LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("login issued token", "expires_in", bundle.ExpiresIn)
	}

	return c.JSON(bundle)
}

// Logout revokes the posted refresh token. The bearer token is only
// decoded, a request without one succeeds without side effects.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	payload := new(RefreshTokenRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	userID, err := a.Service.Logout(c.UserContext(), payload.RefreshToken, BearerToken(c))
	if err != nil {
		return err
	}

	if userID == 0 {
		return c.JSON(MessageResponse{Message: "No active session"})
	}
	return c.JSON(MessageResponse{Message: "Logged out"})
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	if _, err := a.Service.ForgotPassword(c.UserContext(), payload.Email); err != nil {
		return err
	}

	return c.JSON(MessageResponse{Message: "Password reset instructions sent"})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	email, err := a.Service.ResetPassword(c.UserContext(), ResetPasswordMessage{
		Token:       payload.Token,
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		return err
	}

	a.Logger.Info("password reset", "email", email)
	return c.JSON(MessageResponse{Message: "Password has been reset"})
}

// ValidateToken never fails on a bad token, it reports valid false
func (a *AuthController) ValidateToken(c *fiber.Ctx) error {
	payload := new(ValidateTokenRequest)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	return c.JSON(ValidateTokenResponse{Valid: a.Service.ValidateToken(payload.Token)})
}

func (a *AuthController) RefreshToken(c *fiber.Ctx) error {
	payload := new(RefreshTokenRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	bundle, err := a.Service.RefreshOneToken(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("refreshed token", "expires_in", bundle.ExpiresIn)
	}

	return c.JSON(bundle)
}
