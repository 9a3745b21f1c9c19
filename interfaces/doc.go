// Package interfaces defines the contracts shared between the key agreement,
// transfer bookkeeping, storage and HTTP layers of the QKD transfer backend,
// separating interface definitions from their implementations.
//
// # Storage Interfaces
//
// StorageBackend: content-addressed storage for uploaded ciphertexts across
// multiple backend types (file, S3, IPFS, Vault, Redis).
//
// StorageBackendFactory: creates storage backends from URI strings and builds
// multi-backend configurations for redundant storage.
//
// # Types
//
//   - ContentID: 32-byte SHA-256 hash of a stored ciphertext
//   - StorageBackendLocation: parsed storage URI
//
// # Error Types
//
// Every failure the core can report is a sentinel error declared here and
// wrapped with %w by the producing package, so callers match with errors.Is:
//
//   - ErrInsufficientKeyMaterial, ErrInvalidTargetBits: key agreement
//   - ErrInvalidKeyLength, ErrInvalidIVLength, ErrInvalidPadding, ErrInvalidEncoding: cipher input
//   - ErrTransferNotFound: unknown transfer id
//   - ErrContentNotFound, ErrBackendUnavailable, ErrInvalidLocationURI: storage
package interfaces
