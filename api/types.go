package api

import (
	"fmt"
	"time"
)

// Multipart form fields accepted by /upload and /decrypt.
const (
	FormFile         = "file"
	FormIVBase64     = "iv_b64"
	FormKeyHex       = "key_hex"
	FormOriginalName = "original_name"
)

// CiphertextDigestHeader carries the hex BLAKE2b-256 digest of a downloaded ciphertext.
const CiphertextDigestHeader = "X-Ciphertext-Digest"

// KeyResponse is returned by GET /qkd/key.
type KeyResponse struct {
	KeyHex     string `json:"key_hex"`
	Bits       int    `json:"bits"`
	Rounds     int    `json:"rounds"`
	SiftedBits int    `json:"sifted_bits"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	OK                bool   `json:"ok"`
	TransferID        string `json:"transfer_id"`
	OriginalFilename  string `json:"original_filename"`
	EncryptedFilename string `json:"encrypted_filename"`
	DownloadURL       string `json:"download_url"`
	DecryptURL        string `json:"decrypt_url"`
}

// TransferResponse is returned by GET /transfers/{id}.
type TransferResponse struct {
	TransferID        string    `json:"transfer_id"`
	KeyHex            string    `json:"key_hex"`
	IVBase64          string    `json:"iv_b64"`
	OriginalFilename  string    `json:"original_filename"`
	EncryptedFilename string    `json:"encrypted_filename"`
	DownloadURL       string    `json:"download_url"`
	DecryptURL        string    `json:"decrypt_url"`
	CiphertextSize    int       `json:"ciphertext_size"`
	CiphertextDigest  string    `json:"ciphertext_digest"`
	CreatedAt         time.Time `json:"created_at"`
}

func TransferPath(id string) string {
	return fmt.Sprintf("/transfers/%s", id)
}

func CiphertextPath(id string) string {
	return fmt.Sprintf("/transfers/%s/ciphertext", id)
}

func PlaintextPath(id string) string {
	return fmt.Sprintf("/transfers/%s/plaintext", id)
}
