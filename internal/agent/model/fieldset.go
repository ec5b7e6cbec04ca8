package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldSet is the ordered set of fields collected during a conversation.
// A nil value means the field has not been filled yet. Key order follows the
// order the caller supplied and is preserved when the set is encoded again.
type FieldSet struct {
	om *orderedmap.OrderedMap[string, *string]
}

// NewFieldSet returns a FieldSet with the given keys, all unset.
func NewFieldSet(keys ...string) FieldSet {
	fs := FieldSet{om: orderedmap.New[string, *string](len(keys))}
	for _, k := range keys {
		fs.om.Set(k, nil)
	}
	return fs
}

func (fs *FieldSet) ensure() {
	if fs.om == nil {
		fs.om = orderedmap.New[string, *string]()
	}
}

// Len returns the number of fields.
func (fs FieldSet) Len() int {
	if fs.om == nil {
		return 0
	}
	return fs.om.Len()
}

// Keys returns the field names in order.
func (fs FieldSet) Keys() []string {
	if fs.om == nil {
		return nil
	}
	keys := make([]string, 0, fs.om.Len())
	for pair := fs.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Has reports whether key belongs to the set.
func (fs FieldSet) Has(key string) bool {
	if fs.om == nil {
		return false
	}
	_, ok := fs.om.Get(key)
	return ok
}

// Get returns the value of key; ok is false for unknown keys.
func (fs FieldSet) Get(key string) (value *string, ok bool) {
	if fs.om == nil {
		return nil, false
	}
	return fs.om.Get(key)
}

// Set assigns value to key, appending the key when it is new.
func (fs *FieldSet) Set(key string, value *string) {
	fs.ensure()
	fs.om.Set(key, value)
}

// IsFilled reports whether key holds a non-blank value.
func (fs FieldSet) IsFilled(key string) bool {
	v, ok := fs.Get(key)
	return ok && v != nil && strings.TrimSpace(*v) != ""
}

// Missing lists unfilled keys in order.
func (fs FieldSet) Missing() []string {
	var missing []string
	for _, k := range fs.Keys() {
		if !fs.IsFilled(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Complete reports whether every field is filled. An empty set is never complete.
func (fs FieldSet) Complete() bool {
	return fs.Len() > 0 && len(fs.Missing()) == 0
}

// Clone returns a deep copy that shares no state with fs.
func (fs FieldSet) Clone() FieldSet {
	out := NewFieldSet()
	for _, k := range fs.Keys() {
		v, _ := fs.Get(k)
		if v != nil {
			s := *v
			v = &s
		}
		out.Set(k, v)
	}
	return out
}

// MarshalJSON encodes the set as a JSON object, keeping key order.
func (fs FieldSet) MarshalJSON() ([]byte, error) {
	if fs.om == nil {
		return []byte("{}"), nil
	}
	return fs.om.MarshalJSON()
}

// UnmarshalJSON accepts a JSON object, or a JSON string that holds one.
// Every value must be a string or null.
func (fs *FieldSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*fs = NewFieldSet()
		return nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return fmt.Errorf("decode schema string: %w", err)
		}
		if strings.TrimSpace(inner) == "" {
			*fs = NewFieldSet()
			return nil
		}
		return fs.UnmarshalJSON([]byte(inner))
	}
	if data[0] != '{' {
		return fmt.Errorf("schema must be a JSON object")
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode schema object: %w", err)
	}

	out := NewFieldSet()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		v, err := decodeFieldValue(pair.Value)
		if err != nil {
			return fmt.Errorf("decode field %q: %w", pair.Key, err)
		}
		out.Set(pair.Key, v)
	}
	*fs = out
	return nil
}

func decodeFieldValue(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '"' {
		return nil, fmt.Errorf("value must be a string or null, got %s", raw)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StringPtr is a small helper for building field values.
func StringPtr(s string) *string {
	return &s
}
