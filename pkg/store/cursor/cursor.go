// Package cursor implements the opaque, encrypted pagination cursor shared
// by every list operation.
//
// A cursor is the JSON serialization of a ListState, encrypted with
// AES-256-GCM under a key derived from the server secret, then base64url
// encoded. Clients treat it as an opaque resumption token; the server round-
// trips type/id/limit/lastKey/query losslessly across pages. Any decode
// failure (bad base64, truncated ciphertext, failed authentication, bad
// JSON) reports the same invalid-cursor error so tampering is
// indistinguishable from corruption.
package cursor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrInvalid is returned by Decode for every failure mode: bad encoding,
// truncated ciphertext, failed authentication, or malformed state. Callers
// translate it into their own error surface.
var ErrInvalid = errors.New("invalid page cursor")

const (
	// DefaultLimit is the page size applied when a list request carries
	// neither a limit nor a cursor.
	DefaultLimit = 35

	// MaxLimit caps the page size a client may request.
	MaxLimit = 300
)

// keyDerivationSalt and keyDerivationInfo bind derived keys to their use so
// the same server secret can safely feed other derivations.
const (
	keyDerivationSalt = "net-store-cursor"
	keyDerivationInfo = "encryption-key"
)

// ListState is the pagination state embedded in a cursor.
type ListState struct {
	// Type selects a history secondary index (space, project, request,
	// app) or "user" for the plain primary scan.
	Type string `json:"type,omitempty"`

	// ID is the scope identifier for the selected type.
	ID string `json:"id,omitempty"`

	// Space is the companion space id required by project/request scopes.
	Space string `json:"space,omitempty"`

	// Limit is the page size, already clamped to MaxLimit.
	Limit int `json:"limit"`

	// LastKey is the final primary/index key of the previous page; listing
	// resumes after it.
	LastKey string `json:"lastKey,omitempty"`

	// Query is the full-text term carried across query-path pages.
	Query string `json:"query,omitempty"`

	// User is the requesting user's key. A cursor only resumes for the
	// user it was issued to.
	User string `json:"user,omitempty"`

	// Parent is the parent file key of a children listing.
	Parent string `json:"parent,omitempty"`
}

// Codec encrypts and decrypts pagination cursors.
//
// Thread Safety: a Codec is immutable after construction and safe for
// concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives the cursor encryption key from the server secret with
// HKDF-SHA256 and prepares the AES-256-GCM AEAD.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("cursor codec requires a non-empty secret")
	}

	reader := hkdf.New(sha256.New, []byte(secret), []byte(keyDerivationSalt), []byte(keyDerivationInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive cursor key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cursor cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cursor AEAD: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encode serializes and encrypts a list state into an opaque cursor string.
func (c *Codec) Encode(state ListState) (string, error) {
	plaintext, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cursor state: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate cursor nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Decode decrypts and deserializes a cursor. Every failure mode yields the
// same ErrBadRequest "Invalid page cursor".
func (c *Codec) Decode(encoded string) (ListState, error) {
	var state ListState

	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return state, ErrInvalid
	}

	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return state, ErrInvalid
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return state, ErrInvalid
	}

	if err := json.Unmarshal(plaintext, &state); err != nil {
		return state, ErrInvalid
	}
	return state, nil
}

// ClampLimit normalizes a requested page size into [1, MaxLimit], applying
// DefaultLimit when unset.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
