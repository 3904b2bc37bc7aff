package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Sealed layout: magic | salt | nonce | AES-256-GCM ciphertext. The magic is
// authenticated as additional data.
var magic = []byte("MMB1")

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

var (
	ErrNotABackup = errors.New("not a memento backup")
	// ErrDecrypt covers both a wrong passphrase and a tampered file; GCM
	// cannot tell them apart.
	ErrDecrypt = errors.New("decrypt backup: wrong passphrase or corrupted data")
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under a key derived from passphrase with a fresh
// random salt.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	header := make([]byte, len(magic)+saltSize+nonceSize)
	copy(header, magic)
	if _, err := io.ReadFull(rand.Reader, header[len(magic):]); err != nil {
		return nil, fmt.Errorf("generate salt and nonce: %w", err)
	}
	salt := header[len(magic) : len(magic)+saltSize]
	nonce := header[len(magic)+saltSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(header, nonce, plaintext, magic), nil
}

// Open reverses Seal.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < len(magic)+saltSize+nonceSize || !bytes.Equal(sealed[:len(magic)], magic) {
		return nil, ErrNotABackup
	}
	rest := sealed[len(magic):]
	salt := rest[:saltSize]
	nonce := rest[saltSize : saltSize+nonceSize]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, rest[saltSize+nonceSize:], magic)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
