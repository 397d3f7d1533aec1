package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Size is the number of random bytes in a generated token.
const Size = 32

var encoding = base64.RawURLEncoding

// Registry is a directory of persisted tokens.
type Registry struct {
	dir string
}

// NewRegistry opens the token directory, creating it when missing.
func NewRegistry(dir string) (*Registry, error) {
	if dir == "" {
		return nil, ErrInvalidDir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("token: create %s: %w", dir, err)
	}
	return &Registry{dir: dir}, nil
}

// List returns every persisted token, creating one when there are none.
// Processes listing an empty registry at the same time may each create a
// token; every one of them is valid.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	tokens, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(tokens) > 0 {
		return tokens, nil
	}

	tok, err := r.Create(ctx)
	if err != nil {
		return nil, err
	}
	return []string{tok}, nil
}

// Create generates and persists a new token.
func (r *Registry) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tok, err := Generate()
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(filepath.Join(r.dir, tok), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("token: persist: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("token: persist: %w", err)
	}
	return tok, nil
}

// Valid reports whether tok is a persisted token.
func (r *Registry) Valid(ctx context.Context, tok string) bool {
	if !wellFormed(tok) {
		return false
	}

	tokens, err := r.scan(ctx)
	if err != nil {
		return false
	}

	found := 0
	for _, t := range tokens {
		found |= subtle.ConstantTimeCompare([]byte(t), []byte(tok))
	}
	return found == 1
}

func (r *Registry) scan(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("token: list: %w", err)
	}

	tokens := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && wellFormed(e.Name()) {
			tokens = append(tokens, e.Name())
		}
	}
	slices.Sort(tokens)
	return tokens, nil
}

// Generate returns a new random token without persisting it.
func Generate() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	return encoding.EncodeToString(b), nil
}

func wellFormed(tok string) bool {
	if len(tok) != encoding.EncodedLen(Size) {
		return false
	}
	_, err := encoding.DecodeString(tok)
	return err == nil
}
