package cache

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// KeyPrefix marks keys produced by Key.
const KeyPrefix = "blake3:"

// ModuleCache stores module binaries.
type ModuleCache interface {
	// Lookup returns the module stored under key. ok is false on a miss.
	Lookup(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Save stores data under key, replacing any previous entry.
	Save(ctx context.Context, key string, data []byte) error
}

// Key returns the content key for a module binary.
func Key(data []byte) string {
	sum := blake3.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// NormalizeKey converts a published blake3 digest to the form Key returns.
// It accepts "blake3:<hex>", "blake3-<hex>" and bare hex in any case. ok is
// false for other algorithms or malformed digests.
func NormalizeKey(digest string) (key string, ok bool) {
	d := strings.ToLower(strings.TrimSpace(digest))
	for _, prefix := range []string{KeyPrefix, "blake3-"} {
		if strings.HasPrefix(d, prefix) {
			d = d[len(prefix):]
			break
		}
	}
	if len(d) != 2*len(blake3.Sum256(nil)) {
		return "", false
	}
	if _, err := hex.DecodeString(d); err != nil {
		return "", false
	}
	return KeyPrefix + d, true
}
