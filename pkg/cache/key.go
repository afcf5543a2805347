package cache

import (
	"fmt"
	"hash/fnv"
)

// Key derives the stable cache key for an identifier.
// Format: check:<fnv64a hex of the identifier>
func Key(identifier string) string {
	h := fnv.New64a()
	h.Write([]byte(identifier))
	return fmt.Sprintf("check:%016x", h.Sum64())
}
