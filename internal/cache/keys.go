package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// KV is a named argument for Key. Pairs are sorted by name before
// hashing so call sites need not agree on ordering.
type KV struct {
	Name  string
	Value any
}

// Key derives a deterministic cache key from an operation name and its
// arguments. Positional arguments keep their order; KV arguments are
// collected and sorted by name. Equal calls always produce equal keys,
// and the operation name is part of the digest so two operations never
// collide on identical arguments.
func Key(op string, args ...any) string {
	positional := make([]any, 0, len(args))
	var named []KV
	for _, a := range args {
		if kv, ok := a.(KV); ok {
			named = append(named, kv)
			continue
		}
		positional = append(positional, a)
	}
	sort.Slice(named, func(i, j int) bool { return named[i].Name < named[j].Name })

	payload := struct {
		Op    string `json:"op"`
		Args  []any  `json:"args,omitempty"`
		Named []KV   `json:"named,omitempty"`
	}{Op: op, Args: positional, Named: named}

	raw, err := json.Marshal(payload)
	if err != nil {
		// Non-serializable arguments fall back to their Go formatting;
		// still deterministic for the types callers actually pass.
		raw = []byte(fmt.Sprintf("%s|%v", op, args))
	}
	sum := sha256.Sum256(raw)
	return op + ":" + hex.EncodeToString(sum[:])
}

// MarshalJSON orders KV fields as name then value so digests are stable
// across Go releases.
func (kv KV) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{kv.Name, kv.Value})
}
