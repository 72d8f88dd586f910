// Package fieldcipher provides authenticated encryption for individual record
// fields containing protected health information.
//
// Every protected field crosses this package at the record-persistence
// boundary: callers encode on write and decode on read through an explicit
// [Cipher] or [Codec], never through implicit property access. The envelope
// format is stable on disk: base64(JSON{iv, authTag, encrypted}) with all
// three members hex-encoded. Changing the algorithm requires a re-encryption
// migration, not a format break.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	keySize = 32
	// The envelope predates this package and was produced with a 16-byte IV.
	// GCM is run with that nonce size so existing ciphertext stays readable.
	ivSize  = 16
	tagSize = 16
)

var (
	// ErrKeyInvalid indicates a missing or malformed encryption key. This is a
	// startup-time configuration failure; a process without a valid key must
	// not serve encrypted-field traffic.
	ErrKeyInvalid = errors.New("fieldcipher: invalid encryption key")
	// ErrEncryptionFailed indicates the cipher could not produce an envelope.
	ErrEncryptionFailed = errors.New("fieldcipher: encryption failed")
	// ErrDecryptionFailed indicates a malformed envelope, a tampered
	// ciphertext, or a wrong key. Callers on read paths should redact the
	// field rather than fail the whole record.
	ErrDecryptionFailed = errors.New("fieldcipher: decryption failed")
)

// KeyProvider supplies the process-wide symmetric key. Injecting the provider
// rather than the raw key keeps call sites unchanged under key rotation.
type KeyProvider interface {
	CurrentKey() ([]byte, error)
}

// StaticKey is a KeyProvider backed by one fixed 256-bit key.
type StaticKey struct {
	key []byte
}

// NewStaticKey parses a hex-encoded 256-bit key, typically loaded from the
// process environment once at startup.
func NewStaticKey(hexKey string) (*StaticKey, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrKeyInvalid)
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not hex", ErrKeyInvalid)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrKeyInvalid, keySize, len(raw))
	}
	return &StaticKey{key: raw}, nil
}

// CurrentKey returns the configured key.
func (s *StaticKey) CurrentKey() ([]byte, error) {
	if s == nil || len(s.key) != keySize {
		return nil, ErrKeyInvalid
	}
	return s.key, nil
}

// envelope is the JSON body of an encrypted field token.
type envelope struct {
	IV        string `json:"iv"`
	AuthTag   string `json:"authTag"`
	Encrypted string `json:"encrypted"`
}

// Cipher encrypts and decrypts individual field values with AES-256-GCM.
// It is stateless apart from the key provider and safe for concurrent use.
type Cipher struct {
	keys KeyProvider
}

// New creates a Cipher. The key provider is validated eagerly so key
// misconfiguration fails at startup, not on the first write.
func New(keys KeyProvider) (*Cipher, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: key provider is nil", ErrKeyInvalid)
	}
	if _, err := keys.CurrentKey(); err != nil {
		return nil, err
	}
	return &Cipher{keys: keys}, nil
}

// Encrypt seals plaintext into an envelope token. A fresh random IV is drawn
// for every call; the IV is never reused under the same key. Empty input
// passes through unchanged so optional fields stay optional.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	body, err := json.Marshal(envelope{
		IV:        hex.EncodeToString(iv),
		AuthTag:   hex.EncodeToString(tag),
		Encrypted: hex.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return base64.StdEncoding.EncodeToString(body), nil
}

// Decrypt opens an envelope token produced by Encrypt. It fails with
// ErrDecryptionFailed when the token is malformed or the authentication tag
// does not verify. Empty input passes through unchanged.
func (c *Cipher) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	body, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrDecryptionFailed)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: invalid envelope", ErrDecryptionFailed)
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: invalid iv", ErrDecryptionFailed)
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("%w: invalid auth tag", ErrDecryptionFailed)
	}
	ciphertext, err := hex.DecodeString(env.Encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext", ErrDecryptionFailed)
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		// Never include key material or ciphertext in the error.
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// EncryptJSON marshals v and encrypts the resulting document as one field.
func (c *Cipher) EncryptJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return c.Encrypt(string(raw))
}

// DecryptJSON decrypts a token produced by EncryptJSON into v.
func (c *Cipher) DecryptJSON(token string, v any) error {
	plaintext, err := c.Decrypt(token)
	if err != nil {
		return err
	}
	if plaintext == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(plaintext), v); err != nil {
		return fmt.Errorf("%w: invalid payload", ErrDecryptionFailed)
	}
	return nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	key, err := c.keys.CurrentKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyInvalid, err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return gcm, nil
}
