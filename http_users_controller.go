package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// RouteGuard builds the bearer middleware admitting roles, any role when
// none are given.
type RouteGuard func(roles ...Role) fiber.Handler

type UsersController struct {
	Logger  Logger
	Service *UsersService
	Claims  ClaimReader
}

func NewUsersController(service *UsersService, claims ClaimReader) *UsersController {
	if service == nil {
		panic("Missing UsersService in users controller...")
	}
	if claims == nil {
		panic("Missing ClaimReader in users controller...")
	}
	return &UsersController{
		Logger:  defLogger{},
		Service: service,
		Claims:  claims,
	}
}

func (u *UsersController) WithLogger(logger Logger) *UsersController {
	if logger != nil {
		u.Logger = logger
	}
	return u
}

// RegisterRoutes mounts the user administration endpoints on r, usually
// the /api/users group.
func (u *UsersController) RegisterRoutes(r fiber.Router, guard RouteGuard) {
	staff := guard(RoleAdmin, RoleManager)
	anyRole := guard()

	r.Get("/waiting-for-approval", staff, u.GetUsersForApproval).Name("users.waiting-for-approval")
	r.Post("/change-password", anyRole, u.ChangePassword).Name("users.change-password")
	r.Post("/:id<int>/approve", staff, u.ApproveUser).Name("users.approve")
	r.Patch("/:id<int>", anyRole, u.UpdateUserInfo).Name("users.update")
	r.Delete("/:id<int>", staff, u.DeleteUser).Name("users.delete")
	r.Get("/", anyRole, u.GetUsersList).Name("users.list")
	r.Get("/:id<int>", anyRole, u.GetUserByID).Name("users.show")
}

// UpdateUserRequest payload, empty fields are left unchanged
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.FirstName, validation.Length(1, 100)),
			validation.Field(&r.LastName, validation.Length(1, 100)),
			validation.Field(&r.Email, is.EmailFormat),
		)
	}, "Invalid update user payload"); err != nil {
		return err
	}
	return nil
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.OldPassword, validation.Required),
			validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 128)),
			validation.Field(&r.ConfirmNewPassword, validation.Required),
		)
	}, "Invalid change password payload"); err != nil {
		return err
	}
	return nil
}

func (u *UsersController) actor(c *fiber.Ctx) (Actor, error) {
	if actor, ok := ActorFromContext(c.UserContext()); ok {
		return actor, nil
	}
	return ActorFromToken(u.Claims, tokenFromLocals(c))
}

func (u *UsersController) GetUsersForApproval(c *fiber.Ctx) error {
	page, perPage := pagination(c)
	result, err := u.Service.GetUsersForApproval(c.UserContext(), page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (u *UsersController) ApproveUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badParam("id")
	}

	var role *Role
	if raw := c.Query("roleId"); raw != "" {
		r, ok := ParseRole(raw)
		if !ok {
			return ErrInvalidRole
		}
		role = &r
	}

	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	if err := u.Service.ApproveUser(c.UserContext(), id, role, actor); err != nil {
		return err
	}

	u.Logger.Info("user approved", "user_id", id, "actor_id", actor.ID)
	return c.JSON(MessageResponse{Message: fmt.Sprintf("User with id '%d' approved with success.", id)})
}

func (u *UsersController) UpdateUserInfo(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badParam("id")
	}

	payload := new(UpdateUserRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	email, err := u.Service.UpdateUserInfo(c.UserContext(), id, UpdateUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	}, actor)
	if err != nil {
		return err
	}

	return c.JSON(MessageResponse{Message: fmt.Sprintf("User with email '%s' updated with success.", email)})
}

func (u *UsersController) ChangePassword(c *fiber.Ctx) error {
	payload := new(ChangePasswordRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	email, err := u.Service.ChangePassword(c.UserContext(), ChangePasswordMessage{
		OldPassword:        payload.OldPassword,
		NewPassword:        payload.NewPassword,
		ConfirmNewPassword: payload.ConfirmNewPassword,
	}, actor)
	if err != nil {
		return err
	}

	return c.JSON(MessageResponse{Message: fmt.Sprintf("Password from user '%s' updated with success.", email)})
}

func (u *UsersController) DeleteUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badParam("id")
	}

	actor, err := u.actor(c)
	if err != nil {
		return err
	}

	if err := u.Service.DeleteUser(c.UserContext(), id, actor); err != nil {
		return err
	}

	u.Logger.Info("user deactivated", "user_id", id, "actor_id", actor.ID)
	return c.JSON(MessageResponse{Message: fmt.Sprintf("User with id '%d' deactivated.", id)})
}

func (u *UsersController) GetUsersList(c *fiber.Ctx) error {
	var role *Role
	if raw := c.Query("role"); raw != "" {
		r, ok := ParseRole(raw)
		if !ok {
			return ErrInvalidRole
		}
		role = &r
	}

	page, perPage := pagination(c)
	result, err := u.Service.GetUsersList(c.UserContext(), c.Query("search"), role, page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (u *UsersController) GetUserByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badParam("id")
	}

	info, err := u.Service.GetUserByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(info)
}

// pagination reads page and perPage, bounds are applied by the service
func pagination(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", DefaultPage), c.QueryInt("perPage", DefaultPerPage)
}

func badParam(name string) error {
	return errors.New("invalid path parameter "+name, errors.CategoryBadInput).
		WithCode(errors.CodeBadRequest)
}
