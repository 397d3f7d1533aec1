package preflight

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

// ConfigFingerprint hashes the given files now and returns a Check that fails
// with ErrConfigDrift once any of them changes, appears or disappears.
func ConfigFingerprint(paths ...string) (Check, error) {
	want, err := fingerprint(paths)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		got, err := fingerprint(paths)
		if err != nil {
			return err
		}
		if !bytes.Equal(want, got) {
			return ErrConfigDrift
		}
		return nil
	}, nil
}

func fingerprint(paths []string) ([]byte, error) {
	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s\x00", p)

		f, err := os.Open(p)
		if errors.Is(err, os.ErrNotExist) {
			h.Write([]byte{0})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("preflight: fingerprint %s: %w", p, err)
		}

		h.Write([]byte{1})
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("preflight: fingerprint %s: %w", p, err)
		}
	}
	return h.Sum(nil), nil
}
