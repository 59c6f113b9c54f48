package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// ErrAuthentication is returned when AEAD decryption fails because the
// ciphertext, nonce, or associated data were altered.
var ErrAuthentication = errors.New("aead authentication failed")

// ErrNonceReuse is returned when a caller supplies an explicit nonce
// that was already used under the same key.
var ErrNonceReuse = errors.New("nonce already used under this key")

// ContextAAD builds the associated-data string binding a ciphertext to
// its organization and thread. Moving an item between contexts, even
// without touching the bytes, fails decryption.
func ContextAAD(orgID, threadID string) []byte {
	return []byte(orgID + "|" + threadID)
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// nonce. Returns ciphertext and the nonce separately; callers persist
// both.
func Encrypt(key, plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nonce, nil
}

// EncryptWithNonce seals plaintext under an explicit nonce. Only the
// backfill and test paths may call this; reusing a nonce under the same
// key for two different plaintexts destroys the AEAD guarantee.
func EncryptWithNonce(key, nonce, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce length")
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

// Decrypt opens ciphertext. Any tamper of ciphertext, nonce, or aad
// yields ErrAuthentication.
func Decrypt(key, ciphertext, nonce, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrAuthentication
	}
	pt, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, errors.New("key must be 32 bytes (AES-256)")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
