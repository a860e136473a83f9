// Package auth provides authentication and authorization functionality.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"aidanwoods.dev/go-paseto"
)

// PASETO v4 local tokens use a 256-bit symmetric key.
const keyLength = 32

const keyFileName = "auth.key"

// LoadOrGenerateKey returns the token key kept hex-encoded in
// <dataPath>/auth.key, creating it on first start so issued tokens survive
// restarts. A key file that exists but cannot be read or decoded is an error;
// it is never silently replaced, since that would log every member out.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, keyFileName)

	//#nosec G304 -- path is built from the configured data directory
	raw, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		key, err := paseto.V4SymmetricKeyFromHex(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keyPath, err)
		}
		return key.ExportBytes(), nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", keyPath, err)
	}

	key := paseto.NewV4SymmetricKey()
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(key.ExportHex()), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", keyPath, err)
	}
	return key.ExportBytes(), nil
}
