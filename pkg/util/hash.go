package util

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// ContentHash returns a short stable fingerprint of file contents. The
// document index compares fingerprints to skip re-parsing files whose bytes
// did not change between watch events.
func ContentHash(content []byte) string {
	return strconv.FormatUint(xxh3.Hash(content), 16)
}
