package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/logicbridge/pkg/ports"
)

// envelopePrefix marks the single clause an encrypted program is stored as.
const envelopePrefix = "$encrypted:"

// ErrNotEncrypted is returned when a stored program carries no encrypted envelope.
var ErrNotEncrypted = errors.New("program is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new programs. It must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt,
	// so keys can be rotated without rewriting stored programs first.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.ProgramStore
	config EncryptionConfig
}

// NewEncryptionMiddleware returns a middleware that seals each program with AES-GCM.
// Program names stay in the clear so List and Delete pass through.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256), got %d", i, len(k))
		}
	}
	return func(next ports.ProgramStore) ports.ProgramStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, name string, clauses []string) error {
	plain, err := json.Marshal(clauses)
	if err != nil {
		return fmt.Errorf("failed to marshal program: %w", err)
	}
	sealed, err := encrypt(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt program: %w", err)
	}
	envelope := envelopePrefix + base64.StdEncoding.EncodeToString(sealed)
	return m.next.Save(ctx, name, []string{envelope})
}

func (m *encryptionMiddleware) Load(ctx context.Context, name string) ([]string, error) {
	stored, err := m.next.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(stored) != 1 || !strings.HasPrefix(stored[0], envelopePrefix) {
		return nil, fmt.Errorf("program %q: %w", name, ErrNotEncrypted)
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored[0], envelopePrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(sealed, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt program: %w", err)
	}

	var clauses []string
	if err := json.Unmarshal(plain, &clauses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted program: %w", err)
	}
	return clauses, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
