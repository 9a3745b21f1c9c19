package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ruteri/qkd-transfer-backend/cryptoutils"
	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory content-addressed backend.
type memBackend struct {
	mu   sync.Mutex
	data map[interfaces.ContentID][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[interfaces.ContentID][]byte)}
}

func (m *memBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	return d, nil
}

func (m *memBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = append([]byte(nil), data...)
	return id, nil
}

func (m *memBackend) Available(ctx context.Context) bool { return true }
func (m *memBackend) Name() string                       { return "mem" }
func (m *memBackend) LocationURI() string                { return "mem://" }

// MockStorageBackend implements interfaces.StorageBackend for testing
type MockStorageBackend struct {
	mock.Mock
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool { return true }
func (m *MockStorageBackend) Name() string                       { return "mock" }
func (m *MockStorageBackend) LocationURI() string                { return "mock:" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testKey = bytes.Repeat([]byte{0x11}, 16)
	testIV  = bytes.Repeat([]byte{0x22}, 16)
)

func TestStore_CreateLookup(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewStore(newMemBackend(), testLogger(), WithClock(func() time.Time { return created }))

	ciphertext, err := cryptoutils.Encrypt([]byte("hello bob"), testKey, testIV)
	require.NoError(t, err)

	rec, err := store.Create(context.Background(), CreateRequest{
		Ciphertext:        ciphertext,
		IV:                testIV,
		Key:               testKey,
		EncryptedFilename: "report.pdf.enc",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "report.pdf", rec.OriginalFilename)
	assert.Equal(t, "report.pdf.enc", rec.EncryptedFilename)
	assert.Equal(t, len(ciphertext), rec.CiphertextSize)
	assert.Equal(t, cryptoutils.CiphertextDigest(ciphertext), rec.CiphertextDigest)
	assert.Equal(t, interfaces.ComputeID(ciphertext), rec.CiphertextID)
	assert.Equal(t, created, rec.CreatedAt)

	got, err := store.Lookup(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, store.Len())
	assert.EqualValues(t, 1, store.Created())

	// returned records are copies
	got.Key[0] = 0xFF
	again, err := store.Lookup(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, testKey, again.Key)

	_, data, err := store.Ciphertext(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ciphertext, data)
}

func TestStore_LookupUnknown(t *testing.T) {
	store := NewStore(newMemBackend(), testLogger())
	_, err := store.Lookup("does-not-exist")
	assert.ErrorIs(t, err, interfaces.ErrTransferNotFound)

	_, err = store.DecryptTransfer(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, interfaces.ErrTransferNotFound)
}

func TestStore_CreateValidatesKeyAndIV(t *testing.T) {
	backend := &MockStorageBackend{}
	store := NewStore(backend, testLogger())

	_, err := store.Create(context.Background(), CreateRequest{Ciphertext: []byte("x"), Key: make([]byte, 15), IV: testIV})
	assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)

	_, err = store.Create(context.Background(), CreateRequest{Ciphertext: []byte("x"), Key: testKey, IV: make([]byte, 17)})
	assert.ErrorIs(t, err, interfaces.ErrInvalidIVLength)

	backend.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	assert.Equal(t, 0, store.Len())
}

func TestStore_FailedPersistLeavesNoRecord(t *testing.T) {
	backend := &MockStorageBackend{}
	backend.On("Store", mock.Anything, mock.Anything).Return(interfaces.ContentID{}, interfaces.ErrBackendUnavailable)

	idCalls := 0
	store := NewStore(backend, testLogger(), WithIDGenerator(func() (ID, error) {
		idCalls++
		return ID(fmt.Sprintf("id-%d", idCalls)), nil
	}))

	_, err := store.Create(context.Background(), CreateRequest{Ciphertext: []byte("x"), Key: testKey, IV: testIV})
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, idCalls, "no id may be reserved before the ciphertext is persisted")
	backend.AssertExpectations(t)
}

func TestStore_IDCollisionRetries(t *testing.T) {
	ids := []ID{"a", "a", "b"}
	next := 0
	store := NewStore(newMemBackend(), testLogger(), WithIDGenerator(func() (ID, error) {
		id := ids[next]
		next++
		return id, nil
	}))

	first, err := store.Create(context.Background(), CreateRequest{Ciphertext: []byte("1"), Key: testKey, IV: testIV})
	require.NoError(t, err)
	second, err := store.Create(context.Background(), CreateRequest{Ciphertext: []byte("2"), Key: testKey, IV: testIV})
	require.NoError(t, err)

	assert.Equal(t, ID("a"), first.ID)
	assert.Equal(t, ID("b"), second.ID)
	assert.Equal(t, 2, store.Len())
}

func TestStore_IDSpaceExhausted(t *testing.T) {
	store := NewStore(newMemBackend(), testLogger(), WithIDGenerator(func() (ID, error) { return "same", nil }))

	_, err := store.Create(context.Background(), CreateRequest{Ciphertext: []byte("1"), Key: testKey, IV: testIV})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), CreateRequest{Ciphertext: []byte("2"), Key: testKey, IV: testIV})
	assert.True(t, errors.Is(err, errIDSpaceExhausted))
	assert.Equal(t, 1, store.Len())
}

func TestStore_ConcurrentCreates(t *testing.T) {
	store := NewStore(newMemBackend(), testLogger())

	const n = 64
	ids := make([]ID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := store.Create(context.Background(), CreateRequest{
				Ciphertext:        []byte(fmt.Sprintf("payload-%d", i)),
				Key:               testKey,
				IV:                testIV,
				EncryptedFilename: fmt.Sprintf("f%d.enc", i),
			})
			assert.NoError(t, err)
			if rec != nil {
				ids[i] = rec.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[ID]struct{}, n)
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, store.Len())
}

func TestOriginalFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf.enc": "report.pdf",
		"notes.txt":      "notes.txt",
		"x.enc.enc":      "x.enc",
		".enc":           "",
		"archive.ENC":    "archive.ENC",
	}
	for in, want := range tests {
		assert.Equal(t, want, OriginalFilename(in), in)
	}
}

func TestStore_DecryptTransfer(t *testing.T) {
	store := NewStore(newMemBackend(), testLogger())
	plaintext := []byte("%PDF-1.4 totally a pdf")
	ciphertext, err := cryptoutils.Encrypt(plaintext, testKey, testIV)
	require.NoError(t, err)

	rec, err := store.Create(context.Background(), CreateRequest{
		Ciphertext: ciphertext, Key: testKey, IV: testIV, EncryptedFilename: "doc.pdf.enc",
	})
	require.NoError(t, err)

	out, err := store.DecryptTransfer(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out.Data)
	assert.Equal(t, "doc.pdf", out.Filename)
	assert.Equal(t, "application/pdf", out.ContentType)
}

func TestStore_DecryptTransferBadPadding(t *testing.T) {
	store := NewStore(newMemBackend(), testLogger())

	// a ciphertext that is not block aligned is rejected before decryption
	rec, err := store.Create(context.Background(), CreateRequest{
		Ciphertext: bytes.Repeat([]byte{0xAB}, 15), Key: testKey, IV: testIV, EncryptedFilename: "bad.enc",
	})
	require.NoError(t, err)

	_, err = store.DecryptTransfer(context.Background(), rec.ID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidPadding)
}

func TestDecryptAdHoc(t *testing.T) {
	ciphertext, err := cryptoutils.Encrypt([]byte("plain"), testKey, testIV)
	require.NoError(t, err)
	keyHex := cryptoutils.EncodeKeyHex(testKey)
	ivB64 := cryptoutils.EncodeIVBase64(testIV)

	out, err := DecryptAdHoc(context.Background(), AdHocRequest{
		Ciphertext: ciphertext, KeyHex: keyHex, IVBase64: ivB64, UploadName: "notes.txt.enc",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), out.Data)
	assert.Equal(t, "notes.txt", out.Filename)
	assert.Contains(t, out.ContentType, "text/plain")

	out, err = DecryptAdHoc(context.Background(), AdHocRequest{
		Ciphertext: ciphertext, KeyHex: keyHex, IVBase64: ivB64, OriginalName: "given.bin.enc", UploadName: "ignored.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "given.bin", out.Filename)

	out, err = DecryptAdHoc(context.Background(), AdHocRequest{Ciphertext: ciphertext, KeyHex: keyHex, IVBase64: ivB64})
	require.NoError(t, err)
	assert.Equal(t, "decrypted.bin", out.Filename)
	assert.Equal(t, "application/octet-stream", out.ContentType)

	_, err = DecryptAdHoc(context.Background(), AdHocRequest{Ciphertext: ciphertext, KeyHex: "abcd", IVBase64: ivB64})
	assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)

	_, err = DecryptAdHoc(context.Background(), AdHocRequest{Ciphertext: ciphertext, KeyHex: keyHex, IVBase64: "AAAA"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidIVLength)
}
