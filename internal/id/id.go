// Package id generates prefixed identifiers for every persisted entity.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes identify the entity an ID belongs to.
const (
	PrefixUser         = "usr"
	PrefixBook         = "book"
	PrefixRequest      = "req"
	PrefixReading      = "read"
	PrefixThread       = "thr"
	PrefixMessage      = "msg"
	PrefixLedger       = "led"
	PrefixIdea         = "idea"
	PrefixReview       = "rev"
	PrefixDonation     = "don"
	PrefixNotification = "ntf"
	PrefixAudit        = "aud"
	PrefixToken        = "tok"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "book-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id was generated with prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-")
}
