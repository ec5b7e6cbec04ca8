package tools

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// ===================================
// Record Fields Tool
// ===================================

const ToolRecordFields = "record_fields"

// NoneMarker is what the model is told to write for a value it did not find.
const NoneMarker = "None"

// RecordFieldsToolInfo builds the extraction tool for the given field names.
// Every field is an optional string so the model may leave any of them out.
func RecordFieldsToolInfo(keys []string) (*schema.ToolInfo, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("record_fields: no fields")
	}
	params := make(map[string]*schema.ParameterInfo, len(keys))
	for _, k := range keys {
		params[k] = &schema.ParameterInfo{
			Type: schema.String,
			Desc: fmt.Sprintf("Value of %q exactly as stated by the user, or %q when the message does not contain it.", k, NoneMarker),
		}
	}
	return &schema.ToolInfo{
		Name:        ToolRecordFields,
		Desc:        "Record the field values found in the latest user message. Call it exactly once with one argument per field.",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}
