package interfaces

import "errors"

// Key agreement errors.
var (
	// ErrInsufficientKeyMaterial is returned when the round budget is spent before
	// enough sifted bits were collected. Callers may retry with more rounds or
	// more qubits per round.
	ErrInsufficientKeyMaterial = errors.New("insufficient key material")

	// ErrInvalidTargetBits is returned for key sizes that are not a positive multiple of 8.
	ErrInvalidTargetBits = errors.New("target bits must be a positive multiple of 8")
)

// Cipher pipeline errors. These mark malformed or tampered input and are never retried.
var (
	ErrInvalidKeyLength = errors.New("key must be 16, 24 or 32 bytes")
	ErrInvalidIVLength  = errors.New("iv must be 16 bytes")
	ErrInvalidPadding   = errors.New("invalid padding")

	// ErrInvalidEncoding is returned when a hex key or base64 IV cannot be decoded.
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// Transfer and storage errors.
var (
	// ErrTransferNotFound is returned for unknown transfer ids.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
