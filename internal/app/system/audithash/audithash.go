// internal/app/system/audithash/audithash.go

// Package audithash computes the deterministic digest that makes audit
// entries tamper-evident. The digest covers the canonical serialization
// of an entry's content fields; a stored entry whose recomputed digest
// no longer matches its stored hash has been altered.
//
// One algorithm, uniformly: SHA-256 over canonical JSON. Entries are
// not chained to each other; each entry is individually verifiable.
package audithash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry is the hashed content of an audit record. Timestamp is part of
// the input, so hashing has no hidden current-time dependence: the same
// entry always yields the same digest.
type Entry struct {
	Action     string
	ResourceID string
	UserID     string // hex user ID
	Timestamp  time.Time
	Metadata   map[string]string
}

// canonicalEntry fixes the field order and representation the digest
// covers. Timestamps are rendered in UTC RFC 3339; a nil metadata map
// canonicalizes to an empty one so presence and absence hash alike.
type canonicalEntry struct {
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	UserID     string            `json:"userId"`
	Timestamp  string            `json:"timestamp"`
	Metadata   map[string]string `json:"metadata"`
}

// New stamps a fresh timestamp on the given content and returns the
// entry together with its digest, ready to persist. The timestamp is
// truncated to milliseconds so the digest still verifies after a
// round-trip through BSON, which stores millisecond precision.
func New(action, resourceID, userID string, metadata map[string]string) (Entry, string) {
	e := Entry{
		Action:     action,
		ResourceID: resourceID,
		UserID:     userID,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		Metadata:   metadata,
	}
	return e, Hash(e)
}

// Hash returns the hex SHA-256 digest of the entry's canonical form.
// Same input, same output: no randomness, no current-time dependence.
func Hash(e Entry) string {
	md := e.Metadata
	if md == nil {
		md = map[string]string{}
	}
	c := canonicalEntry{
		Action:     e.Action,
		ResourceID: e.ResourceID,
		UserID:     e.UserID,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		Metadata:   md,
	}

	b, err := json.Marshal(c)
	if err != nil {
		// canonicalEntry holds only strings and a string map; Marshal cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the entry's digest and compares it with the stored
// hash. This is how a previously written entry's integrity is checked.
func Verify(e Entry, hash string) bool {
	return Hash(e) == hash
}
