package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const signerInfo = "drivegate share capability"

const signerKeyLen = 32

// Signer owns the HMAC key share capabilities are signed with. It is built
// once at start and handed to the Codec; building a new Signer rotates the key.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key from secret with HKDF-SHA256.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty link secret")
	}

	key := make([]byte, signerKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(signerInfo)), key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	return &Signer{key: key}, nil
}
