package cryptoutils

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BlockSize is the AES block size, which is also the IV size and the PKCS#7 padding modulus.
const BlockSize = aes.BlockSize

var tracer = otel.Tracer("github.com/ruteri/qkd-transfer-backend/cryptoutils")

func validKeyLength(n int) bool {
	return n == 16 || n == 24 || n == 32
}

// Decrypt decrypts AES-CBC ciphertext and strips its PKCS#7 padding.
//
// Checks run in order: key length, IV length, ciphertext shape, padding.
// Ciphertext that is empty or not a whole number of blocks is reported as
// ErrInvalidPadding. The returned slice never aliases ciphertext.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if !validKeyLength(len(key)) {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidKeyLength, len(key))
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidIVLength, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d", interfaces.ErrInvalidPadding, len(ciphertext), BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return Unpad(padded)
}

// DecryptContext is Decrypt wrapped in a tracing span.
func DecryptContext(ctx context.Context, ciphertext, key, iv []byte) ([]byte, error) {
	_, span := tracer.Start(ctx, "cryptoutils.Decrypt", trace.WithAttributes(
		attribute.Int("cipher.ciphertext_bytes", len(ciphertext)),
		attribute.Int("cipher.key_bits", len(key)*8),
	))
	defer span.End()

	plaintext, err := Decrypt(ciphertext, key, iv)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return plaintext, nil
}

// Encrypt pads plaintext with PKCS#7 and encrypts it with AES-CBC.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	if !validKeyLength(len(key)) {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidKeyLength, len(key))
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidIVLength, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// GenerateIV returns a fresh random 16-byte IV.
func GenerateIV() ([]byte, error) {
	iv := make([]byte, BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	return iv, nil
}

// Pad appends PKCS#7 padding. A full block is added when len(data) is already aligned.
func Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// Unpad validates and strips PKCS#7 padding. The pad value must be in 1..16,
// not exceed len(data), and every pad byte must equal it.
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", interfaces.ErrInvalidPadding)
	}

	n := int(data[len(data)-1])
	if n < 1 || n > BlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: pad length %d", interfaces.ErrInvalidPadding, n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", interfaces.ErrInvalidPadding)
		}
	}

	return data[:len(data)-n], nil
}
