package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the AES-256 key in bytes.
	KeySize = 32
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key: must be at least 32 characters")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Encryptor encrypts values with a key derived per storage scope.
type Encryptor struct {
	masterKey []byte
	keys      *cache.Cache // scope -> derived key
}

// NewEncryptor creates a new Encryptor with the given master secret.
// The secret should be at least 32 characters for security.
func NewEncryptor(secret string) (*Encryptor, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidKey
	}
	// Use SHA-256 to normalize the key length
	hash := sha256.Sum256([]byte(secret))
	return &Encryptor{
		masterKey: hash[:],
		keys:      cache.New(time.Hour, 10*time.Minute),
	}, nil
}

// DeriveKey derives the encryption key of a scope using PBKDF2.
// Derived keys are cached since every request decrypts the stored token.
func (e *Encryptor) DeriveKey(scope string) []byte {
	if key, ok := e.keys.Get(scope); ok {
		return key.([]byte)
	}
	salt := "scope:" + scope
	key := pbkdf2.Key(e.masterKey, []byte(salt), PBKDF2Iterations, KeySize, sha256.New)
	e.keys.SetDefault(scope, key)
	return key
}

// Encrypt encrypts plaintext using AES-256-GCM with the scope's key.
// Returns the ciphertext and the nonce (IV) used for encryption.
func (e *Encryptor) Encrypt(plaintext, scope string) (ciphertext, nonce []byte, err error) {
	gcm, err := e.gcm(scope)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM with the scope's key.
func (e *Encryptor) Decrypt(ciphertext, nonce []byte, scope string) (string, error) {
	if len(ciphertext) == 0 || len(nonce) == 0 {
		return "", ErrInvalidCiphertext
	}

	gcm, err := e.gcm(scope)
	if err != nil {
		return "", err
	}

	if len(nonce) != gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Seal encrypts plaintext into a single printable string "nonce.ciphertext".
func (e *Encryptor) Seal(plaintext, scope string) (string, error) {
	ciphertext, nonce, err := e.Encrypt(plaintext, scope)
	if err != nil {
		return "", err
	}
	enc := base64.RawStdEncoding
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(ciphertext), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(sealed, scope string) (string, error) {
	noncePart, ctPart, ok := strings.Cut(sealed, ".")
	if !ok {
		return "", ErrInvalidCiphertext
	}
	enc := base64.RawStdEncoding
	nonce, err := enc.DecodeString(noncePart)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	ciphertext, err := enc.DecodeString(ctPart)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return e.Decrypt(ciphertext, nonce, scope)
}

func (e *Encryptor) gcm(scope string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.DeriveKey(scope))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
