package repository

import (
	"context"
	"database/sql"
	"log"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-service"
)

type txKey struct{}

// Manager owns the bun backed stores and the transaction boundary shared
// by them.
type Manager struct {
	db     *bun.DB
	users  *UserRepository
	tokens *RefreshTokenRepository
}

var _ auth.Transactor = (*Manager)(nil)

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:     db,
		users:  NewUserRepository(db),
		tokens: NewRefreshTokenRepository(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized", errors.CategoryInternal)
	}

	if m.users == nil {
		return errors.New("repository users should be initialized", errors.CategoryInternal)
	}

	if m.tokens == nil {
		return errors.New("repository refresh tokens should be initialized", errors.CategoryInternal)
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

func (m *Manager) Users() *UserRepository {
	return m.users
}

func (m *Manager) RefreshTokens() *RefreshTokenRepository {
	return m.tokens
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Transact runs fn in a transaction carried by ctx. Repository calls made
// with that ctx join it. Nested calls reuse the outer transaction.
func (m *Manager) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return fn(ctx)
	}
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction stored in ctx, or db
func conn(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return db
}
