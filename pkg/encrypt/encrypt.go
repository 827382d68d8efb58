package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// keySize AES-256 key length in bytes
	keySize = 32
	// nonceSize GCM standard nonce length in bytes
	nonceSize = 12

	// directKeyTag domain separation tag for direct chat key derivation
	directKeyTag = "chat-direct-key-v1"

	// DecryptionFallback is shown in place of a message that cannot be
	// decrypted with the conversation key. Decryption never returns an
	// error so one foreign-keyed message cannot break a whole chat.
	DecryptionFallback = "[mesaj criptat]"
)

var (
	// ErrInvalidIdentity derive called with an empty uid
	ErrInvalidIdentity = errors.New("identity must not be empty")
	// ErrEncryption outgoing text could not be encrypted
	ErrEncryption = errors.New("encryption failed")
)

// DeriveDirectKey derives the symmetric key for a 1:1 chat from the two
// participant uids. The pair is sorted first, so the result is the same
// no matter which side derives it. The key is never persisted.
func DeriveDirectKey(idA, idB string) (string, error) {
	if idA == "" || idB == "" {
		return "", ErrInvalidIdentity
	}

	pair := []string{idA, idB}
	sort.Strings(pair)
	ikm := []byte(strings.Join(pair, "_"))

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(directKeyTag)), key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// GenerateGroupKey creates a fresh random 256-bit group key. Generated once
// at group creation, stored on the group record, shared by every member.
func GenerateGroupKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// EncryptMessage encrypts plaintext with AES-256-GCM under the hex-encoded
// key and returns base64(nonce || ciphertext). The envelope carries its own
// nonce, so decryption needs only the envelope and the key.
func EncryptMessage(plaintext, hexKey string) (string, error) {
	if plaintext == "" || hexKey == "" {
		return "", ErrEncryption
	}

	aead, err := newGCM(hexKey)
	if err != nil {
		return "", ErrEncryption
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryption
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptMessage opens an envelope produced by EncryptMessage. On any
// failure (corrupted envelope, wrong key) it returns DecryptionFallback
// instead of an error, so the rendering path always has a value.
func DecryptMessage(envelope, hexKey string) string {
	aead, err := newGCM(hexKey)
	if err != nil {
		return DecryptionFallback
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil || len(sealed) <= nonceSize {
		return DecryptionFallback
	}

	plaintext, err := aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return DecryptionFallback
	}
	return string(plaintext)
}

func newGCM(hexKey string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(key) != keySize {
		return nil, errors.New("key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
