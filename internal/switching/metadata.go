package switching

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is an ordered string map carried through a switch round trip.
// Insertion order survives JSON encoding, so a decoded value compares equal
// to the one that was encoded.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata builds Metadata from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewMetadata(pairs ...string) Metadata {
	var m Metadata
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set stores value under key. Existing keys keep their position.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (m Metadata) Value(key string) string {
	return m.values[key]
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m Metadata) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	var out Metadata
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// Merge writes every entry of other into m, in other's order.
func (m *Metadata) Merge(other Metadata) {
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// Equal reports whether both maps hold the same entries in the same order.
func (m Metadata) Equal(other Metadata) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// Map returns an unordered copy, convenient for JSON responses.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.keys))
	for _, k := range m.keys {
		out[k] = m.values[k]
	}
	return out
}

// MarshalJSON encodes the entries as a JSON object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping member order.
// null decodes to empty Metadata; a null member value is an error.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = Metadata{}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata must be a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata key must be a string")
		}
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		value, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata value for %q must be a string", key)
		}
		m.Set(key, value)
	}

	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
