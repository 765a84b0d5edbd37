package resource

import (
	"hash/fnv"
	"path/filepath"
)

// ID identifies a cached resource. It is either the hash of a path/name or an explicit value.
type ID uint64

// HashString returns the stable identifier of a string key.
//
// Parameters:
//   - s: the key to hash
//
// Returns:
//   - ID: the FNV-1a 64-bit hash of s
func HashString(s string) ID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return ID(h.Sum64())
}

// HashPath returns the identifier of a filesystem path after cleaning it, so that
// "textures/../textures/a.png" and "textures/a.png" share one cache entry.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - ID: the hash of the cleaned, slash-separated path
func HashPath(path string) ID {
	return HashString(filepath.ToSlash(filepath.Clean(path)))
}
