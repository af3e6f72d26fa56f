package ddlgrator

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"
)

// Migration is a named, ordered list of operations forming one node of the
// migration graph.
type Migration struct {
	// ID is unique within a set. Loaded migrations take it from the file
	// name without extension.
	ID string
	// Hash is the fingerprint recorded when the migration was generated.
	Hash string
	// Initial marks the root of the graph. Exactly one live migration has it
	// set, and only that one has an empty Dependency.
	Initial    bool
	Dependency string
	// Replaces lists the migrations this one squashes.
	Replaces   []string
	Operations []Operation
	// Path is the file the migration was loaded from, if any.
	Path string
}

// Fingerprint returns the hex SHA-256 of the canonical JSON encoding of the
// operations. It is independent of the document format the migration was
// written in.
func (m Migration) Fingerprint() (string, error) {
	ops, err := encodeOperations(m.Operations)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Replaced reports whether id is in m.Replaces.
func (m Migration) Replaced(id string) bool {
	for _, r := range m.Replaces {
		if r == id {
			return true
		}
	}
	return false
}
