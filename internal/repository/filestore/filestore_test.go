package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/moviegate/internal/repository"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data", "users.json"))
}

func TestFindOnMissingFileIsAbsent(t *testing.T) {
	store := newStore(t)

	user, found, err := store.FindUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, user)
}

func TestCreateAndFindNormalizesEmail(t *testing.T) {
	store := newStore(t)
	name := "Ada"

	created, err := store.CreateUser(context.Background(), "  Ada@Example.COM ", &name, "digest")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, ok, err := store.FindUserByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "digest", found.PasswordHash)
	require.NotNil(t, found.Name)
	assert.Equal(t, "Ada", *found.Name)
}

func TestCreateRejectsDuplicateAcrossCasing(t *testing.T) {
	store := newStore(t)

	_, err := store.CreateUser(context.Background(), "dup@example.com", nil, "a")
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), "DUP@Example.com", nil, "b")
	assert.True(t, errors.Is(err, repository.ErrDuplicateEmail))
}

func TestCreatePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	_, err := New(path).CreateUser(context.Background(), "keep@example.com", nil, "digest")
	require.NoError(t, err)

	_, found, err := New(path).FindUserByEmail(context.Background(), "keep@example.com")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCorruptFileIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := New(path).FindUserByEmail(context.Background(), "a@example.com")
	assert.True(t, errors.Is(err, repository.ErrStorage))
	assert.False(t, errors.Is(err, repository.ErrDuplicateEmail))
}

func TestConcurrentCreateSameEmailSingleWinner(t *testing.T) {
	store := newStore(t)
	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CreateUser(context.Background(), "Race@Example.com", nil, "digest")
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, repository.ErrDuplicateEmail):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
}
