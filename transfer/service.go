package transfer

import (
	"context"
	"mime"
	"path/filepath"

	"github.com/ruteri/qkd-transfer-backend/cryptoutils"
)

const defaultContentType = "application/octet-stream"

// Plaintext is a decrypted file ready to be served.
type Plaintext struct {
	Data        []byte
	Filename    string
	ContentType string
}

// DecryptTransfer resolves id, fetches its ciphertext and decrypts it with the recorded key and IV.
func (s *Store) DecryptTransfer(ctx context.Context, id ID) (*Plaintext, error) {
	rec, ciphertext, err := s.Ciphertext(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := cryptoutils.DecryptContext(ctx, ciphertext, rec.Key, rec.IV)
	if err != nil {
		s.log.Warn("Failed to decrypt transfer", "err", err, "transfer_id", id.String())
		return nil, err
	}

	return &Plaintext{
		Data:        data,
		Filename:    rec.OriginalFilename,
		ContentType: ContentTypeFor(rec.OriginalFilename),
	}, nil
}

// AdHocRequest is a decryption that bypasses the store.
type AdHocRequest struct {
	Ciphertext []byte
	KeyHex     string
	IVBase64   string
	// OriginalName takes precedence over UploadName for the output file name.
	OriginalName string
	UploadName   string
}

// DecryptAdHoc decodes the key and IV and decrypts the ciphertext.
// The output name is OriginalName, or UploadName with ".enc" stripped.
func DecryptAdHoc(ctx context.Context, req AdHocRequest) (*Plaintext, error) {
	key, err := cryptoutils.DecodeKeyHex(req.KeyHex)
	if err != nil {
		return nil, err
	}
	iv, err := cryptoutils.DecodeIVBase64(req.IVBase64)
	if err != nil {
		return nil, err
	}

	data, err := cryptoutils.DecryptContext(ctx, req.Ciphertext, key, iv)
	if err != nil {
		return nil, err
	}

	name := req.OriginalName
	if name == "" {
		name = req.UploadName
	}
	name = OriginalFilename(name)
	if name == "" {
		name = "decrypted.bin"
	}

	return &Plaintext{
		Data:        data,
		Filename:    name,
		ContentType: ContentTypeFor(name),
	}, nil
}

// ContentTypeFor guesses a MIME type from the file extension, defaulting to application/octet-stream.
func ContentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return defaultContentType
}
