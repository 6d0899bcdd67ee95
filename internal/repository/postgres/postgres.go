// Package postgres stores users in PostgreSQL through database/sql and the
// pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/repository"
)

// DBTX is the subset of *sql.DB the repository needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// Repository implements repository.UserRepository on PostgreSQL.
type Repository struct {
	db  DBTX
	now func() time.Time
}

var _ repository.UserRepository = (*Repository)(nil)

// New constructs a Repository.
func New(db DBTX) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Open connects to dsn using the pgx driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// FindUserByEmail fetches a user by normalized email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	const query = `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`
	var (
		u    domain.User
		name sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, domain.NormalizeEmail(email)).
		Scan(&u.ID, &u.Email, &name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: select user: %w", repository.ErrStorage, err)
	}
	if name.Valid {
		u.Name = &name.String
	}
	return &u, true, nil
}

// CreateUser inserts a user. The unique index on email makes the insert the
// only arbiter of duplicates.
func (r *Repository) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*domain.User, error) {
	const query = `INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        domain.NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	var nameArg sql.NullString
	if name != nil {
		nameArg = sql.NullString{String: *name, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, nameArg, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, repository.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: insert user: %w", repository.ErrStorage, err)
	}
	return user, nil
}

// Ping verifies the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping database: %w", repository.ErrStorage, err)
	}
	return nil
}
