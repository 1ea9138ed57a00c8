package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-service"
)

// RefreshTokenModel is the bun model for refresh tokens
type RefreshTokenModel struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int        `bun:"id,pk,autoincrement"`
	UserID    int        `bun:"user_id,notnull"`
	Token     string     `bun:"token,notnull"`
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	Revoked   bool       `bun:"revoked,notnull"`
	RevokedAt *time.Time `bun:"revoked_at"`
}

func (m *RefreshTokenModel) toRefreshToken() auth.RefreshToken {
	return auth.RefreshToken{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		Revoked:   m.Revoked,
		RevokedAt: m.RevokedAt,
	}
}

// RefreshTokenRepository implements auth.RefreshTokenStore using bun.
// Revoked rows are kept for auditing and never returned by lookups.
type RefreshTokenRepository struct {
	db *bun.DB
}

var _ auth.RefreshTokenStore = (*RefreshTokenRepository)(nil)

func NewRefreshTokenRepository(db *bun.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Add(ctx context.Context, token auth.RefreshToken) (auth.RefreshToken, error) {
	model := &RefreshTokenModel{
		UserID:    token.UserID,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}

	if _, err := conn(ctx, r.db).NewInsert().Model(model).Returning("id").Exec(ctx); err != nil {
		return auth.RefreshToken{}, errors.Wrap(err, errors.CategoryInternal, "failed to store refresh token")
	}

	token.ID = model.ID
	token.Revoked = false
	token.RevokedAt = nil
	return token, nil
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (auth.RefreshToken, error) {
	return r.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rt.token = ?", token)
	})
}

func (r *RefreshTokenRepository) FindByTokenAndUser(ctx context.Context, token string, userID int) (auth.RefreshToken, error) {
	return r.findOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("rt.token = ?", token).Where("rt.user_id = ?", userID)
	})
}

func (r *RefreshTokenRepository) findOne(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) (auth.RefreshToken, error) {
	model := new(RefreshTokenModel)
	q := conn(ctx, r.db).NewSelect().
		Model(model).
		Where("rt.revoked = ?", false).
		OrderExpr("rt.id DESC").
		Limit(1)

	if err := where(q).Scan(ctx); err != nil {
		if isNoRows(err) {
			return auth.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return auth.RefreshToken{}, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve refresh token")
	}
	return model.toRefreshToken(), nil
}

func (r *RefreshTokenRepository) UpdateExpiry(ctx context.Context, id int, expiresAt time.Time) error {
	res, err := conn(ctx, r.db).NewUpdate().
		Model((*RefreshTokenModel)(nil)).
		Set("expires_at = ?", expiresAt).
		Where("id = ?", id).
		Where("revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to extend refresh token")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, id int, revokedAt time.Time) error {
	res, err := conn(ctx, r.db).NewUpdate().
		Model((*RefreshTokenModel)(nil)).
		Set("revoked = ?", true).
		Set("revoked_at = ?", revokedAt).
		Where("id = ?", id).
		Where("revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// RevokeAllForUser revokes every live token of userID, none is not an error
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int, revokedAt time.Time) error {
	_, err := conn(ctx, r.db).NewUpdate().
		Model((*RefreshTokenModel)(nil)).
		Set("revoked = ?", true).
		Set("revoked_at = ?", revokedAt).
		Where("user_id = ?", userID).
		Where("revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh tokens")
	}
	return nil
}
