package store_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/hpickle/internal/config"
	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/observability"
	"github.com/born-ml/hpickle/internal/serialization"
	"github.com/born-ml/hpickle/internal/store"
	"github.com/born-ml/hpickle/internal/store/storetest"
)

func TestFileBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return store.NewFileBackend(filepath.Join(t.TempDir(), "c.hpk"))
	})
}

func TestFileBackendMmap(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return store.NewFileBackend(filepath.Join(t.TempDir(), "c.hpk"),
			store.WithMmap(true), store.WithValidation(serialization.ValidationStrict))
	})
}

func TestMemoryBackend(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Backend {
		return store.NewMemoryBackend()
	})
}

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		_, client := newRedis(t)
		b, err := store.NewRedisBackend(client, "hpickle:test", 0)
		require.NoError(t, err)
		return b
	})
}

func TestFileBackendAtomicCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.hpk")
	b := store.NewFileBackend(path, store.WithMetadata(map[string]string{"run": "7"}))
	require.NoError(t, b.Commit(context.Background(), container.NewRoot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "c.hpk", entries[0].Name())

	r, err := serialization.NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "7", r.Header().Metadata["run"])
}

func TestFileBackendCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.hpk")
	require.NoError(t, os.WriteFile(path, []byte("not a container, just some bytes padding it out to the fixed header size"), 0o600))

	b := store.NewFileBackend(path)
	_, err := b.Fetch(context.Background(), false)
	assert.ErrorIs(t, err, serialization.ErrInvalidMagic)
}

func TestMemoryBackendStream(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryBackend()
	root := container.NewRoot()
	require.NoError(t, root.SetAttr("k", "v"))
	require.NoError(t, src.Commit(ctx, root))

	var buf bytes.Buffer
	n, err := src.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(src.Bytes())), n)

	dst := store.NewMemoryBackend()
	_, err = dst.ReadFrom(&buf)
	require.NoError(t, err)
	got, err := dst.Fetch(ctx, false)
	require.NoError(t, err)
	v, err := got.Attr("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = store.NewMemoryBackend().WriteTo(&buf)
	assert.ErrorIs(t, err, container.ErrNotFound)
}

func TestRedisBackendFields(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	b, err := store.NewRedisBackend(client, "c", time.Minute)
	require.NoError(t, err)
	require.NoError(t, b.Commit(ctx, container.NewRoot()))

	assert.Equal(t, "hpk", mr.HGet("c", "format"))
	assert.Equal(t, "1", mr.HGet("c", "version"))
	assert.NotEmpty(t, mr.HGet("c", "id"))
	assert.Equal(t, time.Minute, mr.TTL("c"))

	ttl, err := b.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	mr.FastForward(2 * time.Minute)
	ok, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "key should have expired")
}

func TestRedisBackendRejectsBadHash(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	b, err := store.NewRedisBackend(client, "c", 0)
	require.NoError(t, err)

	mr.HSet("c", "format", "json", "version", "1", "data", "{}")
	_, err = b.Fetch(ctx, false)
	assert.ErrorIs(t, err, container.ErrCorruptData)

	require.NoError(t, b.Commit(ctx, container.NewRoot()))
	mr.HSet("c", "version", "99")
	_, err = b.Fetch(ctx, false)
	assert.ErrorIs(t, err, serialization.ErrUnsupportedVersion)

	require.NoError(t, b.Delete(ctx))
	_, err = b.Fetch(ctx, false)
	assert.ErrorIs(t, err, container.ErrNotFound)
}

func TestNewRedisBackendErrors(t *testing.T) {
	_, err := store.NewRedisBackend(nil, "k", 0)
	assert.Error(t, err)
	_, client := newRedis(t)
	_, err = store.NewRedisBackend(client, "", 0)
	assert.Error(t, err)
}

func TestNewRedisBackendFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := store.NewRedisBackendFromConfig(config.RedisConfig{Addr: mr.Addr(), Key: "cfg"})
	require.NoError(t, err)
	assert.Equal(t, "cfg", b.Key())
	require.NoError(t, b.Commit(context.Background(), container.NewRoot()))
	assert.True(t, mr.Exists("cfg"))
}

func TestHandleExcludesSameLocation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.hpk")
	first := store.NewHandle(store.NewFileBackend(path), store.ModeWrite)
	_, err := first.Open(ctx)
	require.NoError(t, err)

	rel, err := filepath.Rel(mustGetwd(t), path)
	require.NoError(t, err)
	for _, b := range []store.Backend{
		store.NewFileBackend(path),
		store.NewFileBackend(rel),
		store.NewFileBackend(filepath.Join(filepath.Dir(path), ".", "c.hpk")),
	} {
		_, err = store.NewHandle(b, store.ModeRead).Open(ctx)
		assert.ErrorIs(t, err, store.ErrAlreadyOpen, b.Location())
	}

	other := store.NewHandle(store.NewFileBackend(path+".other"), store.ModeWrite)
	_, err = other.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, other.Discard())
	require.NoError(t, first.Discard())

	_, client := newRedis(t)
	a, err := store.NewRedisBackend(client, "k", 0)
	require.NoError(t, err)
	b, err := store.NewRedisBackend(client, "k", 0)
	require.NoError(t, err)
	c, err := store.NewRedisBackend(client, "other", 0)
	require.NoError(t, err)
	assert.Equal(t, a.Location(), b.Location())
	assert.NotEqual(t, a.Location(), c.Location())

	ha := store.NewHandle(a, store.ModeWrite)
	_, err = ha.Open(ctx)
	require.NoError(t, err)
	_, err = store.NewHandle(b, store.ModeWrite).Open(ctx)
	assert.ErrorIs(t, err, store.ErrAlreadyOpen)
	require.NoError(t, ha.Discard())
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestHandleCountsCommits(t *testing.T) {
	ctx := context.Background()
	before := observability.Counter(`hpickle_commit_total{backend="memory"}`)

	h := store.NewHandle(store.NewMemoryBackend(), store.ModeWrite)
	_, err := h.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Close(ctx))

	after := observability.Counter(`hpickle_commit_total{backend="memory"}`)
	assert.Equal(t, before+1, after)
}

func TestHandleRootOptions(t *testing.T) {
	ctx := context.Background()
	opts := container.DatasetOptions{"compression": "gzip"}
	h := store.NewHandle(store.NewMemoryBackend(), store.ModeWrite,
		store.WithRootOptions(container.WithDatasetOptions(opts)))
	root, err := h.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, opts, root.Options())
	require.NoError(t, h.Close(ctx))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]store.Mode{
		"r": store.ModeRead, "w": store.ModeWrite, "a": store.ModeAppend,
		"read": store.ModeRead, "append": store.ModeAppend,
	} {
		got, err := store.ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := store.ParseMode("x")
	assert.Error(t, err)
	assert.Equal(t, "a", store.ModeAppend.String())
}
