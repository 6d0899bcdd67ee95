package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/moviegate/internal/repository"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Dial(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestCreateAndFind(t *testing.T) {
	store, mr := newStore(t)
	name := "Grace"

	created, err := store.CreateUser(context.Background(), "Grace@Example.com", &name, "digest")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", created.Email)
	assert.True(t, mr.Exists("moviegate:user:grace@example.com"))

	found, ok, err := store.FindUserByEmail(context.Background(), "GRACE@example.com ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "digest", found.PasswordHash)
	require.NotNil(t, found.Name)
	assert.Equal(t, "Grace", *found.Name)
}

func TestFindAbsent(t *testing.T) {
	store, _ := newStore(t)

	user, ok, err := store.FindUserByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, user)
}

func TestCreateDuplicate(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.CreateUser(context.Background(), "dup@example.com", nil, "a")
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), "DUP@example.com", nil, "b")
	assert.True(t, errors.Is(err, repository.ErrDuplicateEmail))
}

func TestCorruptRecordIsStorageError(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, mr.Set("moviegate:user:bad@example.com", "{"))

	_, _, err := store.FindUserByEmail(context.Background(), "bad@example.com")
	assert.True(t, errors.Is(err, repository.ErrStorage))
}

func TestUnavailableServerIsStorageError(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	_, _, err := store.FindUserByEmail(context.Background(), "a@example.com")
	assert.True(t, errors.Is(err, repository.ErrStorage))
	assert.True(t, errors.Is(store.Ping(context.Background()), repository.ErrStorage))
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	store, _ := newStore(t)
	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.CreateUser(context.Background(), "race@example.com", nil, "digest")
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, repository.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, created)
}
