package params

import (
	"fmt"
	"sort"
	"strconv"
)

// DefaultDelimiter joins keys and values in encoded combinations.
const DefaultDelimiter = "-"

// EmptyToken is the encoding of an empty combination. An empty string
// would collapse the output directory onto the run-name level, so empty
// combinations get a fixed placeholder segment instead.
const EmptyToken = "default"

// Set is a flat parameter combination: parameter name to scalar value.
// Values are limited to text, integer, float, and bool scalars; anything
// else is rendered through fmt.Sprint.
type Set map[string]any

// Clone returns a defensive copy. Managers copy their combination at
// construction time so later caller mutations cannot change the path a
// run resolves to.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// KV is one parameter in canonical order.
type KV struct {
	Key   string
	Value any
}

// Ordered returns the combination sorted by ascending key, independent
// of insertion order.
func (s Set) Ordered() []KV {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, KV{Key: k, Value: s[k]})
	}
	return out
}

// Merge returns the key union of a and b, with b winning collisions.
// Used for result-file naming where callers name extra parameters
// explicitly.
func Merge(a, b Set) Set {
	out := a.Clone()
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Encode serializes the combination as key-value-key-value... with the
// given delimiter. Keys are visited in ascending order, so two sets with
// equal contents always encode identically. Floats are rendered with
// fixed two-decimal precision; other scalars use their natural text
// form. The empty set encodes to EmptyToken.
func Encode(s Set, delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if len(s) == 0 {
		return EmptyToken
	}
	parts := make([]string, 0, 2*len(s))
	for _, kv := range s.Ordered() {
		parts = append(parts, kv.Key, formatValue(kv.Value))
	}
	joined := parts[0]
	for _, p := range parts[1:] {
		joined += delimiter + p
	}
	return joined
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 32)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
