package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/moviegate/internal/repository"
)

const (
	selectUserQuery = `(?s)^SELECT\s+id,\s*email,\s*name,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	insertUserQuery = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*name,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return New(db), mock
}

func TestFindUserByEmailFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at"}).
		AddRow("u-1", "ada@example.com", "Ada", "digest", created)
	mock.ExpectQuery(selectUserQuery).WithArgs("ada@example.com").WillReturnRows(rows)

	user, found, err := repo.FindUserByEmail(context.Background(), " ADA@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail error: %v", err)
	}
	if !found || user.ID != "u-1" || user.PasswordHash != "digest" {
		t.Fatalf("unexpected user: %+v found=%v", user, found)
	}
	if user.Name == nil || *user.Name != "Ada" {
		t.Fatalf("expected name Ada, got %v", user.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserByEmailNullName(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at"}).
		AddRow("u-2", "anon@example.com", nil, "digest", time.Now())
	mock.ExpectQuery(selectUserQuery).WithArgs("anon@example.com").WillReturnRows(rows)

	user, found, err := repo.FindUserByEmail(context.Background(), "anon@example.com")
	if err != nil || !found {
		t.Fatalf("expected user, got found=%v err=%v", found, err)
	}
	if user.Name != nil {
		t.Fatalf("expected nil name, got %q", *user.Name)
	}
}

func TestFindUserByEmailAbsent(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(selectUserQuery).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	user, found, err := repo.FindUserByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("expected nil error for absent user, got %v", err)
	}
	if found || user != nil {
		t.Fatalf("expected absent marker, got %+v", user)
	}
}

func TestFindUserByEmailStorageError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(selectUserQuery).WithArgs("a@example.com").WillReturnError(errors.New("db down"))

	_, _, err := repo.FindUserByEmail(context.Background(), "a@example.com")
	if !errors.Is(err, repository.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestCreateUserSuccess(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	name := "Ada"
	mock.ExpectExec(insertUserQuery).
		WithArgs(sqlmock.AnyArg(), "ada@example.com", "Ada", "digest", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.CreateUser(context.Background(), "Ada@Example.com", &name, "digest")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.ID == "" || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserUniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(insertUserQuery).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key"})

	_, err := repo.CreateUser(context.Background(), "dup@example.com", nil, "digest")
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestCreateUserStorageError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(insertUserQuery).WillReturnError(errors.New("connection reset"))

	_, err := repo.CreateUser(context.Background(), "a@example.com", nil, "digest")
	if !errors.Is(err, repository.ErrStorage) || errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrStorage only, got %v", err)
	}
}
