// Package fingerprint derives stable request identities for deduplication.
//
// A fingerprint identifies a (subject, query, module) triple. Identical
// inputs always produce identical fingerprints; distinct triples only
// collide via SHA-256 hash collision.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// ModuleNone is the sentinel recorded when no module is selected. It keeps
// "no module" a stable bucket distinct from any real module id.
const ModuleNone = "none"

// Sentinel errors for fingerprint derivation.
var (
	// ErrEmptySubject is returned when the subject identifier is empty.
	ErrEmptySubject = errors.New("subject cannot be empty")

	// ErrEmptyQuery is returned when the query text is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// Fingerprint is the hex-encoded identity of a request triple.
type Fingerprint string

// Short returns the first 8 hex characters, for task-id salts and logs.
func (f Fingerprint) Short() string {
	if len(f) < 8 {
		return string(f)
	}
	return string(f[:8])
}

// New derives the fingerprint for a (subject, query, module) triple.
//
// Fields are length-prefixed before hashing so that shifting bytes across
// field boundaries cannot produce the same digest. An empty module is
// normalized to ModuleNone.
func New(subject, query, module string) (Fingerprint, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	if query == "" {
		return "", ErrEmptyQuery
	}
	if module == "" {
		module = ModuleNone
	}

	h := sha256.New()
	for _, field := range []string{subject, query, module} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
