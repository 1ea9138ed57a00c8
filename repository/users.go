package repository

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-service"
)

// UserModel is the bun model for users
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int        `bun:"id,pk,autoincrement"`
	FirstName    string     `bun:"first_name,notnull"`
	LastName     string     `bun:"last_name,notnull"`
	Email        string     `bun:"email,notnull"`
	PasswordHash string     `bun:"password_hash,notnull"`
	BirthDate    time.Time  `bun:"birth_date,nullzero"`
	Role         int        `bun:"role,notnull"`
	Status       bool       `bun:"status,notnull"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    *time.Time `bun:"updated_at"`
}

func userModelFrom(user auth.User) *UserModel {
	f := user.Fields()
	return &UserModel{
		ID:           f.ID,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		BirthDate:    f.BirthDate,
		Role:         int(f.Role),
		Status:       f.Status,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func (m *UserModel) toUser() auth.User {
	return auth.RestoreUser(auth.UserFields{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		BirthDate:    m.BirthDate,
		Role:         auth.Role(m.Role),
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	})
}

// UserRepository implements auth.UserStore using bun.
type UserRepository struct {
	db *bun.DB
}

var _ auth.UserStore = (*UserRepository)(nil)

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) AddUser(ctx context.Context, user auth.User) (auth.User, error) {
	model := userModelFrom(user)
	model.ID = 0

	_, err := conn(ctx, r.db).NewInsert().
		Model(model).
		Returning("id").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.User{}, auth.ErrDuplicateEmail
		}
		return auth.User{}, errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
	}

	return user.WithID(model.ID), nil
}

func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	count, err := conn(ctx, r.db).NewSelect().
		Model((*UserModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to count users")
	}
	return count, nil
}

// GetByEmail matches email case insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	model := new(UserModel)
	err := conn(ctx, r.db).NewSelect().
		Model(model).
		Where("lower(u.email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return auth.User{}, r.lookupError(err)
	}
	return model.toUser(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (auth.User, error) {
	model := new(UserModel)
	err := conn(ctx, r.db).NewSelect().
		Model(model).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		return auth.User{}, r.lookupError(err)
	}
	return model.toUser(), nil
}

func (r *UserRepository) GetUserInfoByID(ctx context.Context, id int) (auth.UserInfo, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return auth.UserInfo{}, err
	}
	return user.Info(), nil
}

// UpdateUser writes every mutable column of user and returns its email
func (r *UserRepository) UpdateUser(ctx context.Context, user auth.User) (string, error) {
	model := userModelFrom(user)

	res, err := conn(ctx, r.db).NewUpdate().
		Model(model).
		Column("first_name", "last_name", "email", "password_hash", "role", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return "", auth.ErrDuplicateEmail
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", auth.ErrUserNotFound
	}

	return model.Email, nil
}

// ListUsers returns one page of users matching filter and the total count
func (r *UserRepository) ListUsers(ctx context.Context, filter auth.UserFilter) ([]auth.UserInfo, int, error) {
	var models []UserModel

	q := conn(ctx, r.db).NewSelect().
		Model(&models).
		OrderExpr("u.id ASC")

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("lower(u.first_name) LIKE ?", pattern).
				WhereOr("lower(u.last_name) LIKE ?", pattern).
				WhereOr("lower(u.email) LIKE ?", pattern)
		})
	}

	if filter.Role != nil {
		q = q.Where("u.role = ?", int(*filter.Role))
	}

	if filter.Active != nil {
		q = q.Where("u.status = ?", *filter.Active)
	}

	if filter.PerPage > 0 {
		q = q.Limit(filter.PerPage).Offset(filter.Offset())
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil && !isNoRows(err) {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	out := make([]auth.UserInfo, 0, len(models))
	for i := range models {
		out = append(out, models[i].toUser().Info())
	}
	return out, total, nil
}

func (r *UserRepository) lookupError(err error) error {
	if isNoRows(err) {
		return auth.ErrUserNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
}
