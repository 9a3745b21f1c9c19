package cryptoutils

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ruteri/qkd-transfer-backend/interfaces"
)

// DecodeKeyHex parses a hex-encoded AES key. Surrounding whitespace and a 0x
// prefix are accepted. The decoded key must be 16, 24 or 32 bytes.
func DecodeKeyHex(s string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: key_hex: %v", interfaces.ErrInvalidEncoding, err)
	}
	if !validKeyLength(len(key)) {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidKeyLength, len(key))
	}
	return key, nil
}

// DecodeIVBase64 parses a standard base64 IV of exactly 16 bytes.
func DecodeIVBase64(s string) ([]byte, error) {
	iv, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: iv_b64: %v", interfaces.ErrInvalidEncoding, err)
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidIVLength, len(iv))
	}
	return iv, nil
}

func EncodeKeyHex(key []byte) string {
	return hex.EncodeToString(key)
}

func EncodeIVBase64(iv []byte) string {
	return base64.StdEncoding.EncodeToString(iv)
}
