package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/qkd-transfer-backend/cryptoutils"
	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"go.uber.org/atomic"
)

const (
	encryptedSuffix = ".enc"
	maxIDAttempts   = 8
)

var errIDSpaceExhausted = errors.New("could not allocate a unique transfer id")

// ID is an opaque transfer identifier.
type ID string

func (id ID) String() string {
	return string(id)
}

// Record describes one uploaded ciphertext. Records are never mutated after creation.
type Record struct {
	ID                ID
	Key               []byte
	IV                []byte
	CiphertextID      interfaces.ContentID
	CiphertextSize    int
	CiphertextDigest  string
	OriginalFilename  string
	EncryptedFilename string
	CreatedAt         time.Time
}

func (r *Record) clone() *Record {
	c := *r
	c.Key = append([]byte(nil), r.Key...)
	c.IV = append([]byte(nil), r.IV...)
	return &c
}

// CreateRequest carries an upload. Key and IV are raw bytes.
type CreateRequest struct {
	Ciphertext        []byte
	IV                []byte
	Key               []byte
	EncryptedFilename string
}

// Store keeps transfer records in memory and ciphertexts in a storage backend.
// Records live for the lifetime of the process; there is no expiry.
type Store struct {
	mu      sync.RWMutex
	records map[ID]*Record

	sink    interfaces.StorageBackend
	log     *slog.Logger
	created atomic.Int64

	newID func() (ID, error)
	now   func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator replaces the UUIDv4 id generator.
func WithIDGenerator(fn func() (ID, error)) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithClock replaces time.Now for CreatedAt.
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = fn
	}
}

// NewStore creates an empty store persisting ciphertexts to sink.
func NewStore(sink interfaces.StorageBackend, log *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		records: make(map[ID]*Record),
		sink:    sink,
		log:     log,
		newID:   newRandomID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRandomID() (ID, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return ID(u.String()), nil
}

// Create persists the ciphertext and records the transfer.
//
// The ciphertext is handed to the storage backend before an id is reserved, so
// a failed persist leaves no record behind. Key and IV lengths are checked first.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	if n := len(req.Key); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidKeyLength, n)
	}
	if len(req.IV) != cryptoutils.BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidIVLength, len(req.IV))
	}

	contentID, err := s.sink.Store(ctx, req.Ciphertext)
	if err != nil {
		s.log.Error("Failed to persist ciphertext", "err", err, slog.String("backend", s.sink.Name()))
		return nil, fmt.Errorf("failed to persist ciphertext: %w", err)
	}

	rec := &Record{
		Key:               append([]byte(nil), req.Key...),
		IV:                append([]byte(nil), req.IV...),
		CiphertextID:      contentID,
		CiphertextSize:    len(req.Ciphertext),
		CiphertextDigest:  cryptoutils.CiphertextDigest(req.Ciphertext),
		OriginalFilename:  OriginalFilename(req.EncryptedFilename),
		EncryptedFilename: req.EncryptedFilename,
		CreatedAt:         s.now().UTC(),
	}

	if err := s.insert(rec); err != nil {
		return nil, err
	}
	s.created.Inc()

	s.log.Info("Transfer created",
		slog.String("transfer_id", rec.ID.String()),
		slog.String("content_id", contentID.Short()),
		slog.Int("size", rec.CiphertextSize),
		slog.String("filename", rec.EncryptedFilename))

	return rec.clone(), nil
}

// insert assigns a fresh id to rec and stores it, retrying on collision.
func (s *Store) insert(rec *Record) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("failed to generate transfer id: %w", err)
		}

		s.mu.Lock()
		if _, taken := s.records[id]; !taken {
			rec.ID = id
			s.records[id] = rec
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		s.log.Warn("Transfer id collision, retrying", slog.String("transfer_id", id.String()))
	}
	return errIDSpaceExhausted
}

// Lookup returns a copy of the record for id.
func (s *Store) Lookup(id ID) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrTransferNotFound, id)
	}
	return rec.clone(), nil
}

// Ciphertext fetches the stored ciphertext for id.
func (s *Store) Ciphertext(ctx context.Context, id ID) (*Record, []byte, error) {
	rec, err := s.Lookup(id)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.sink.Fetch(ctx, rec.CiphertextID)
	if err != nil {
		s.log.Error("Failed to fetch ciphertext", "err", err,
			slog.String("transfer_id", id.String()),
			slog.String("content_id", rec.CiphertextID.Short()))
		return nil, nil, fmt.Errorf("failed to fetch ciphertext for %s: %w", id, err)
	}
	return rec, data, nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Created returns the number of successful creates since startup.
func (s *Store) Created() int64 {
	return s.created.Load()
}

// Backend returns the ciphertext sink.
func (s *Store) Backend() interfaces.StorageBackend {
	return s.sink
}

// OriginalFilename strips one trailing ".enc" from an encrypted file name.
func OriginalFilename(encrypted string) string {
	return strings.TrimSuffix(encrypted, encryptedSuffix)
}
