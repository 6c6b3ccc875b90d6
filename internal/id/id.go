package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// New creates a prefixed unique identifier using NanoID,
// e.g. "evt-V1StGXR8_Z5jdHi6B-myT".
//
// IDs are assigned once at creation and never reused within a session, so
// the 21-character URL-safe alphabet gives ample collision margin.
func New(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}
