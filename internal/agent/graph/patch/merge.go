package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/askaquestion-genai/server/internal/agent/graph/parsers"
	"github.com/askaquestion-genai/server/internal/agent/model"
)

const OperationReplace = "replace"

// Operation is a single RFC6902 operation.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// Operations turns extracted values into replace operations. Values that are
// none-markers and keys outside fields produce no operation, so a merge can
// only ever add information. Operations follow the key order of fields.
func Operations(fields model.FieldSet, extracted map[string]*string) []Operation {
	var ops []Operation
	for _, key := range fields.Keys() {
		v, ok := extracted[key]
		if !ok || v == nil || parsers.IsNone(*v) {
			continue
		}
		ops = append(ops, Operation{
			Op:    OperationReplace,
			Path:  "/" + EscapeJSONPointer(key),
			Value: strings.TrimSpace(*v),
		})
	}
	return ops
}

// Merge applies extracted values onto fields and returns the new set together
// with the keys that changed. fields is never modified. Key order and key set
// are preserved.
func Merge(fields model.FieldSet, extracted map[string]*string) (model.FieldSet, []string, error) {
	ops := Operations(fields, extracted)
	if len(ops) == 0 {
		return fields.Clone(), nil, nil
	}

	currentJSON, err := json.Marshal(fields)
	if err != nil {
		return model.FieldSet{}, nil, fmt.Errorf("failed to marshal current fields: %w", err)
	}
	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return model.FieldSet{}, nil, fmt.Errorf("failed to marshal patch operations: %w", err)
	}
	p, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return model.FieldSet{}, nil, fmt.Errorf("failed to decode patch: %w", err)
	}
	modifiedJSON, err := p.Apply(currentJSON)
	if err != nil {
		return model.FieldSet{}, nil, fmt.Errorf("failed to apply patch: %w", err)
	}

	var patched map[string]*string
	if err := json.Unmarshal(modifiedJSON, &patched); err != nil {
		return model.FieldSet{}, nil, fmt.Errorf("patched fields are not a flat object: %w", err)
	}

	// rebuild in the original key order; the patched document is unordered
	out := model.NewFieldSet()
	var changed []string
	for _, key := range fields.Keys() {
		before, _ := fields.Get(key)
		after := patched[key]
		if after == nil && before != nil {
			// a fill is never undone
			after = before
		}
		if !sameValue(before, after) {
			changed = append(changed, key)
		}
		out.Set(key, after)
	}
	return out, changed, nil
}

// EscapeJSONPointer escapes a single reference token per RFC6901.
func EscapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
