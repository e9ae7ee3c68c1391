package siteguard

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const csrfKeyInfo = "siteguard csrf v1"

// deriveKey expands secret into a 32-byte key bound to info.
func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, err
	}
	return key, nil
}
