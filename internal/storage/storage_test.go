package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/storage"
	"github.com/pribylovaa/backoffice-console/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingKV) Set(context.Context, string, string) error   { return f.err }
func (f failingKV) Remove(context.Context, string) error        { return f.err }

func TestTokenStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := memory.New()
	s := storage.NewTokenStore(kv, "")
	require.Equal(t, storage.DefaultTokenKey, s.Key())

	in := models.TokenPair{AccessToken: "a.b.c", RefreshToken: "r-1"}
	require.NoError(t, s.Save(ctx, in))

	raw, err := kv.Get(ctx, storage.DefaultTokenKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"accessToken":"a.b.c","refreshToken":"r-1"}`, raw)

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestTokenStore_LoadMissing(t *testing.T) {
	t.Parallel()

	_, err := storage.NewTokenStore(memory.New(), "k").Load(context.Background())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_LoadCorrupted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := memory.New()
	s := storage.NewTokenStore(kv, "k")

	require.NoError(t, kv.Set(ctx, "k", "{not json"))
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrCorrupted)

	require.NoError(t, kv.Set(ctx, "k", `{"refreshToken":"r"}`))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrCorrupted)
}

func TestTokenStore_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := memory.New()
	s := storage.NewTokenStore(kv, "k")

	require.NoError(t, s.Save(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	require.Equal(t, 0, kv.Len())
}

func TestTokenStore_PropagatesBackendErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("backend down")
	s := storage.NewTokenStore(failingKV{err: boom}, "k")

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, s.Save(ctx, models.TokenPair{AccessToken: "a"}), boom)
	require.ErrorIs(t, s.Clear(ctx), boom)

	require.NoError(t, storage.NewTokenStore(failingKV{err: storage.ErrNotFound}, "k").Clear(ctx))
}
