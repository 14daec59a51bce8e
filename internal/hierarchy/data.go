package hierarchy

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Data is the payload attached to a context: an insertion-ordered mapping
// of string keys to arbitrarily nested values. Nested JSON objects decode
// as nested *OrderedMap values, so key order survives a full
// parse → merge → encode round trip.
type Data = *orderedmap.OrderedMap[string, any]

// NewData returns an empty context payload.
func NewData() Data {
	return orderedmap.New[string, any]()
}

// ParseData decodes a JSON object into an ordered payload. The input must
// be a JSON object ({} at the top level), not an array or scalar. The
// decode walks the token stream directly: the library's own Unmarshal
// routes nested values through encoding/json, which would turn inner
// objects into unordered maps.
func ParseData(raw []byte) (Data, error) {
	if len(raw) == 0 {
		return NewData(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing context data: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing context data: top-level value must be an object")
	}
	d, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing context data: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parsing context data: trailing content after object")
	}
	return d, nil
}

func decodeObject(dec *json.Decoder) (Data, error) {
	d := NewData()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", keyTok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		d.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); ok {
		switch delim {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", delim)
		}
	}
	return tok, nil
}

// EncodeData serializes a payload to JSON, preserving key order.
// A nil payload encodes as the empty object.
func EncodeData(d Data) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding context data: %w", err)
	}
	return raw, nil
}

// ParseValue decodes a single JSON value (object, array, or scalar).
// JSON objects decode as ordered maps so they merge like any other payload.
func ParseValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing value: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parsing value: trailing content")
	}
	return v, nil
}

// IsEmptyData reports whether the payload is nil or has no keys.
func IsEmptyData(d Data) bool {
	return d == nil || d.Len() == 0
}

// CloneData returns a deep copy of the payload. Mutating the copy never
// affects the original, including nested maps and arrays.
func CloneData(d Data) Data {
	if d == nil {
		return NewData()
	}
	out := NewData()
	for pair := d.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, cloneValue(pair.Value))
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Data:
		return CloneData(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// DeepMerge layers overlay on top of base and returns the result as a new
// payload; neither input is mutated. Mapping values merge recursively;
// scalar and array values from the overlay replace the base value
// wholesale. Keys keep the base's order, with overlay-only keys appended
// in the overlay's order.
func DeepMerge(base, overlay Data) Data {
	merged := CloneData(base)
	if overlay == nil {
		return merged
	}
	for pair := overlay.Oldest(); pair != nil; pair = pair.Next() {
		existing, ok := merged.Get(pair.Key)
		if ok {
			baseMap, baseIsMap := existing.(Data)
			overlayMap, overlayIsMap := pair.Value.(Data)
			if baseIsMap && overlayIsMap {
				merged.Set(pair.Key, DeepMerge(baseMap, overlayMap))
				continue
			}
		}
		merged.Set(pair.Key, cloneValue(pair.Value))
	}
	return merged
}

// dataEqual compares two payloads by their canonical JSON encoding,
// including key order. Used by tests and idempotence checks.
func dataEqual(a, b Data) bool {
	rawA, errA := EncodeData(a)
	rawB, errB := EncodeData(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(rawA) == string(rawB)
}
