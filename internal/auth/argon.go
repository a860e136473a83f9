package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Caps hashing cost for absurd inputs.
const maxPasswordLength = 1024

var errMalformedHash = errors.New("malformed password hash")

// hashParams are the argon2id cost settings stored alongside each hash, so
// raising them later does not invalidate existing accounts.
type hashParams struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

// OWASP baseline for argon2id.
var defaultParams = hashParams{
	memory:  64 * 1024,
	time:    3,
	threads: 4,
	saltLen: 16,
	keyLen:  32,
}

func (p hashParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// HashPassword returns the PHC string form of an argon2id hash:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>.
func HashPassword(password string) (string, error) {
	switch {
	case password == "":
		return "", errors.New("password cannot be empty")
	case len(password) > maxPasswordLength:
		return "", errors.New("password exceeds maximum length")
	}

	salt := make([]byte, defaultParams.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := defaultParams.derive(password, salt)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, defaultParams.memory, defaultParams.time, defaultParams.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash. A hash
// that cannot be parsed never matches; the parse error is not surfaced so
// callers cannot tell a corrupt row from a wrong password.
func VerifyPassword(encoded, password string) (bool, error) {
	if len(password) > maxPasswordLength {
		return false, nil
	}
	params, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, nil //nolint:nilerr // treated as a mismatch
	}
	return subtle.ConstantTimeCompare(key, params.derive(password, salt)) == 1, nil
}

func parseHash(encoded string) (hashParams, []byte, []byte, error) {
	var p hashParams

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, errMalformedHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, errMalformedHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.saltLen = len(salt)
	p.keyLen = uint32(len(key)) //nolint:gosec // key length comes from a short stored hash

	return p, salt, key, nil
}
