package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackend_StoreFetch(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "file://"+dir, backend.LocationURI())

	data := []byte("ciphertext bytes")
	id, err := backend.Store(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)

	_, err = os.Stat(filepath.Join(dir, ciphertextDir, id.String()))
	require.NoError(t, err)

	fetched, err := backend.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// storing identical content is idempotent
	id2, err := backend.Store(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	entries, err := os.ReadDir(filepath.Join(dir, ciphertextDir))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileBackend_FetchMissing(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	_, err = backend.Fetch(context.Background(), interfaces.ComputeID([]byte("nope")))
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackend_ConcurrentStores(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := backend.Store(context.Background(), []byte("same payload"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := backend.Fetch(context.Background(), interfaces.ComputeID([]byte("same payload")))
	require.NoError(t, err)
	assert.Equal(t, []byte("same payload"), data)
}

func TestStorageBackendFactory(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())
	dir := t.TempDir()

	loc, err := interfaces.NewStorageBackendLocation("file://" + dir)
	require.NoError(t, err)

	backend, err := factory.StorageBackendFor(loc)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	t.Run("single location is not wrapped", func(t *testing.T) {
		b, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{loc})
		require.NoError(t, err)
		assert.IsType(t, &FileBackend{}, b)
	})

	t.Run("multiple locations", func(t *testing.T) {
		locs, err := interfaces.ParseStorageBackendLocations("file://" + dir + ",file://" + t.TempDir())
		require.NoError(t, err)
		b, err := factory.CreateMultiBackend(locs)
		require.NoError(t, err)
		assert.IsType(t, &MultiStorageBackend{}, b)

		id, err := b.Store(context.Background(), []byte("replicated"))
		require.NoError(t, err)
		data, err := b.Fetch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []byte("replicated"), data)
	})

	t.Run("redis and vault locations build without connecting", func(t *testing.T) {
		for _, uri := range []string{
			"redis://localhost:6379/2?prefix=test:&ttl=1h",
			"vault://localhost:8200/secret/qkd?token=abc",
			"ipfs://localhost:5001/qkd/test?timeout=5s",
		} {
			l, err := interfaces.NewStorageBackendLocation(uri)
			require.NoError(t, err)
			_, err = factory.StorageBackendFor(l)
			assert.NoError(t, err, uri)
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		for _, uri := range []string{
			"redis://localhost:6379/0?ttl=forever",
			"ipfs://localhost:5001/?timeout=soon",
			"s3:///no-bucket",
		} {
			l, err := interfaces.NewStorageBackendLocation(uri)
			require.NoError(t, err)
			_, err = factory.StorageBackendFor(l)
			assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI, uri)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := interfaces.NewStorageBackendLocation("ftp://example.com/")
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

		_, err = interfaces.ParseStorageBackendLocations(" , ")
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
	})
}

func TestRedactedURI(t *testing.T) {
	loc, err := interfaces.NewStorageBackendLocation("vault://localhost:8200/secret?token=s3cr3t")
	require.NoError(t, err)
	assert.NotContains(t, redactedURI(loc), "s3cr3t")

	loc, err = interfaces.NewStorageBackendLocation("s3://AKIA:topsecret@bucket/prefix")
	require.NoError(t, err)
	assert.NotContains(t, redactedURI(loc), "topsecret")
}
