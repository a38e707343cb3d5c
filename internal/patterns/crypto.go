package patterns

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// safePassphrase is the build-time constant passphrase used to seal and
// open ".safe" pattern database envelopes.
const safePassphrase = "666666"

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = chacha20poly1305.KeySize
	saltSize     = 16
)

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
}

// sealDatabase encrypts plaintext under passphrase, producing a
// self-contained envelope: salt || nonce || ciphertext.
func sealDatabase(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("constructing aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// openDatabase decrypts an envelope produced by sealDatabase.
func openDatabase(envelope []byte, passphrase string) ([]byte, error) {
	if len(envelope) < saltSize+chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("encrypted database too short to contain salt and nonce")
	}
	salt := envelope[:saltSize]
	nonce := envelope[saltSize : saltSize+chacha20poly1305.NonceSize]
	ciphertext := envelope[saltSize+chacha20poly1305.NonceSize:]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("constructing aead: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting database: wrong passphrase or corrupt file: %w", err)
	}
	return plaintext, nil
}
