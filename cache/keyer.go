package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// Normalization bounds. Inputs past these limits are folded into an
// incremental hash instead of serialized verbatim, so key derivation
// stays cheap for pathological params.
const (
	maxArrayElements = 100
	maxSerializedLen = 1000
	maxDepth         = 32
)

// Keyer derives deterministic cache keys from model call parameters.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map
//   iteration order. Array element order is preserved: ordered inputs
//   such as message lists are semantically ordered.
// - Concurrency: safe for concurrent use.
// - Errors: Derive never panics; it returns ("", err) when the params
//   contain nothing serializable, and callers must treat that as
//   caching-unavailable for the call.
type Keyer struct {
	prefix string
}

// NewKeyer creates a keyer that namespaces keys with the given prefix.
func NewKeyer(prefix string) *Keyer {
	if prefix == "" {
		prefix = "ai-cache"
	}
	return &Keyer{prefix: prefix}
}

// Derive generates a deterministic cache key.
// Format: <prefix>:<hex of SHA-256(modelID + "\n" + canonical params)>
func (k *Keyer) Derive(modelID string, params map[string]any) (string, error) {
	canonical, ok := normalizeMap(params, 0)
	if !ok || (len(params) > 0 && canonical == "{}") {
		return "", ErrUnusableParams
	}

	sum := sha256.Sum256([]byte(modelID + "\n" + canonical))
	return k.prefix + ":" + hex.EncodeToString(sum[:]), nil
}

// normalize produces a canonical JSON-shaped representation of v.
// Returns ok=false when v cannot be represented; object entries drop
// such values, array elements replace them with null to preserve
// positions.
func normalize(v any, depth int) (string, bool) {
	if v == nil || depth > maxDepth {
		return "", false
	}

	switch val := v.(type) {
	case map[string]any:
		s, ok := normalizeMap(val, depth+1)
		if !ok {
			return "", false
		}
		return bound(s), true
	case []any:
		return normalizeSlice(val, depth+1)
	case string:
		return bound(strconv.Quote(val)), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	default:
		// Anything else goes through standard JSON encoding; values the
		// encoder rejects (funcs, channels, NaN) are treated as absent.
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return bound(string(b)), true
	}
}

func normalizeMap(m map[string]any, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	first := true
	for _, k := range keys {
		valStr, ok := normalize(m[k], depth+1)
		if !ok {
			// Absent value: omit the entry entirely.
			continue
		}
		if !first {
			result = append(result, ',')
		}
		first = false
		result = append(result, strconv.Quote(k)...)
		result = append(result, ':')
		result = append(result, valStr...)
	}
	result = append(result, '}')

	return string(result), true
}

func normalizeSlice(s []any, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	// Oversized arrays are folded into an incremental hash rather than
	// serialized element by element.
	if len(s) > maxArrayElements {
		h := sha256.New()
		for _, v := range s {
			elem, ok := normalize(v, depth+1)
			if !ok {
				elem = "null"
			}
			h.Write([]byte(elem))
			h.Write([]byte{0})
		}
		return `"sha256:` + hex.EncodeToString(h.Sum(nil)) + `"`, true
	}

	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		elem, ok := normalize(v, depth+1)
		if !ok {
			// Keep the position so order stays significant.
			elem = "null"
		}
		result = append(result, elem...)
	}
	result = append(result, ']')

	return bound(string(result)), true
}

// bound replaces an oversized serialization with a hash of itself.
func bound(s string) string {
	if len(s) <= maxSerializedLen {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return `"sha256:` + hex.EncodeToString(sum[:]) + `"`
}
