package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema constrains the raw YAML shape before field-level parsing.
// Engine param shapes are validated separately, per engine.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "kind", "version", "protocol", "engine"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "kind": {"type": "string", "enum": ["acquisition", "filter", "output", "Acquisition", "Filter", "Output"]},
    "version": {"type": "string", "minLength": 1},
    "protocol": {"type": "string", "minLength": 1},
    "engine": {"type": "string", "minLength": 1},
    "produces": {"type": "string"},
    "update_times": {"type": "array", "items": {"type": "string"}},
    "params": {"type": "object"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("handler-definition.json", documentSchema)

// validateDocument checks the decoded YAML against the definition schema.
// The document takes a round trip through encoding/json so the validator
// sees canonical JSON types.
func validateDocument(doc *document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("handler definition: %w", err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return fmt.Errorf("handler definition: %w", err)
	}
	if err := compiledSchema.Validate(inst); err != nil {
		return fmt.Errorf("handler definition schema: %w", err)
	}
	return nil
}

// MarshalJSON maps the YAML document onto the JSON field names the schema
// expects, omitting absent optional fields. Kept next to the schema so the
// two stay in sync.
func (d *document) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"name":     d.Name,
		"kind":     d.Kind,
		"version":  d.Version,
		"protocol": d.Protocol,
		"engine":   d.Engine,
	}
	if d.Produces != "" {
		fields["produces"] = d.Produces
	}
	if d.UpdateTimes != nil {
		fields["update_times"] = d.UpdateTimes
	}
	if d.Params != nil {
		fields["params"] = d.Params
	}
	return json.Marshal(fields)
}

// Render writes a definition back out in canonical form. Used by tests and
// by tooling that seeds handler directories.
func Render(name, kind, version, protocol, engine, produces string, updateTimes []string, params map[string]any) []byte {
	var b strings.Builder
	b.WriteString(Magic + "\n")
	fmt.Fprintf(&b, "name: %s\n", name)
	fmt.Fprintf(&b, "kind: %s\n", kind)
	fmt.Fprintf(&b, "version: %q\n", version)
	fmt.Fprintf(&b, "protocol: %q\n", protocol)
	fmt.Fprintf(&b, "engine: %s\n", engine)
	if produces != "" {
		fmt.Fprintf(&b, "produces: %s\n", produces)
	}
	if len(updateTimes) > 0 {
		b.WriteString("update_times:\n")
		for _, ut := range updateTimes {
			fmt.Fprintf(&b, "  - %q\n", ut)
		}
	}
	if len(params) > 0 {
		b.WriteString("params:\n")
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch val := params[k].(type) {
			case string:
				fmt.Fprintf(&b, "  %s: %q\n", k, val)
			default:
				fmt.Fprintf(&b, "  %s: %v\n", k, val)
			}
		}
	}
	return []byte(b.String())
}
