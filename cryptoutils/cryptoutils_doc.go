// Package cryptoutils implements the symmetric cipher pipeline for file transfers.
//
// Files are encrypted with AES in CBC mode under a 128, 192 or 256-bit key
// (normally one produced by package qkd) and a random 16-byte IV, with PKCS#7
// padding to the block size.
//
// # Key Functions
//
//   - Encrypt - pads and encrypts a plaintext
//   - Decrypt - decrypts and validates padding
//   - DecodeKeyHex, DecodeIVBase64 - parse the wire encodings of keys and IVs
//   - CiphertextDigest - BLAKE2b-256 digest used for integrity checks of stored ciphertexts
//
// # Validation Order
//
// Decrypt checks its inputs before touching the cipher:
//
//  1. key length is 16, 24 or 32 bytes (ErrInvalidKeyLength)
//  2. IV length is 16 bytes (ErrInvalidIVLength)
//  3. ciphertext is a non-empty multiple of 16 bytes (ErrInvalidPadding)
//  4. the last byte is a pad length in 1..16 no longer than the data, and
//     every pad byte equals it (ErrInvalidPadding)
//
// All errors wrap the sentinels in package interfaces and can be matched with errors.Is.
//
// # Security Considerations
//
// CBC with PKCS#7 is unauthenticated. A wrong key or tampered ciphertext is
// usually caught by the padding check, but about one in 256 such inputs
// decrypts to garbage with valid-looking padding. Padding errors are reported
// to clients, so this package must not be exposed where padding-oracle attacks
// matter.
package cryptoutils
