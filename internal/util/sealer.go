package util

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix = "v1:"
	sealerInfo   = "taskmind provider token v1"
)

// ErrInvalidSealedValue is returned when a stored value cannot be opened
var ErrInvalidSealedValue = errors.New("invalid sealed value")

// Sealer encrypts provider credentials before they reach the database
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an XChaCha20-Poly1305 key from secret.
// An empty secret yields a process-local random key; values sealed with it
// cannot be opened after a restart.
func NewSealer(secret string) (*Sealer, error) {
	ikm := []byte(secret)
	if secret == "" {
		random, err := CryptoRandomBytes(chacha20poly1305.KeySize)
		if err != nil {
			return nil, err
		}
		ikm = random
		log.Printf(
			"[Sealer] WARNING: TOKEN_ENCRYPTION_KEY not set, using an ephemeral key; stored tokens will not survive a restart",
		)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce, err := CryptoRandomBytes(int64(s.aead.NonceSize()))
	if err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrInvalidSealedValue
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrInvalidSealedValue
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidSealedValue
	}
	return string(plain), nil
}
