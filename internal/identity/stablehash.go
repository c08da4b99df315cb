package identity

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// StableHash returns a deterministic string over the sorted (key, value)
// pairs of fields: a JSON-canonicalized dump with keys pre-sorted, per
// spec.md §4.3's "stable hash" fallback. Used as the last-resort identity
// seed when no stronger natural key is available.
func StableHash(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, keyValue{Key: k, Value: fields[k]})
	}

	b, err := json.Marshal(ordered)
	if err != nil {
		// fields must be JSON-marshalable canonical payload values; a
		// marshal failure here indicates a caller bug, not a runtime
		// condition to recover from gracefully.
		panic("identity: StableHash: fields not JSON-marshalable: " + err.Error())
	}
	return string(b)
}

type keyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// namespaceURL is the fixed UUIDv5 namespace all identity IDs derive from.
var namespaceURL = uuid.NameSpaceURL

// seedUUID derives a UUIDv5 from a seed string of the form
// "<type>:<org_id>:<discriminant>:<value>".
func seedUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(namespaceURL, []byte(seed))
}
