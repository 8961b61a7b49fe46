// Package engine maps handler definitions onto compiled-in implementations.
// A definition names an engine; the registry holds one constructor and one
// reflected parameter schema per engine name. Replacing a loaded handler is
// replacing its registry entry and dropping the old instance reference.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/inlay-dev/inlay-core/datakind"
	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/manifest"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
)

// Instance is a ready-to-use handler built from a definition. Capability
// interfaces (Getter, Filterer, Outputter) are discovered by type assertion.
type Instance interface {
	Name() values.Name
	Kind() entities.Kind
	Version() values.Version
	Produces() datakind.Kind
}

// Getter is the acquisition capability.
type Getter interface {
	Get(ctx context.Context, attrs map[string]string) (*datakind.Value, error)
}

// Filterer is the filter capability.
type Filterer interface {
	Filter(ctx context.Context, in *datakind.Value, attrs map[string]string) (*datakind.Value, error)
}

// Outputter is the output capability, producing the bytes spliced back into
// the document.
type Outputter interface {
	Output(ctx context.Context, in *datakind.Value, attrs map[string]string) ([]byte, error)
}

// Deps carries the collaborators injected into constructed instances.
type Deps struct {
	Fetcher ports.Fetcher
	Logger  *slog.Logger
}

// Constructor builds an instance from a validated definition.
type Constructor func(m *manifest.Manifest, deps Deps) (Instance, error)

// Registry maps engine names to constructors and parameter schemas.
type Registry struct {
	ctors   map[string]Constructor
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates a registry pre-populated with the built-in engines.
func NewRegistry() *Registry {
	r := &Registry{
		ctors:   make(map[string]Constructor),
		schemas: make(map[string]*jsonschema.Schema),
	}
	registerBuiltins(r)
	return r
}

// Register adds an engine. paramsModel is a struct whose reflected JSON
// schema constrains the definition's params block; nil means no params.
func (r *Registry) Register(name string, paramsModel any, ctor Constructor) error {
	if _, exists := r.ctors[name]; exists {
		return fmt.Errorf("engine already registered: %s", name)
	}
	if paramsModel != nil {
		schema, err := reflectSchema(name, paramsModel)
		if err != nil {
			return err
		}
		r.schemas[name] = schema
	}
	r.ctors[name] = ctor
	return nil
}

// Known reports whether an engine name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.ctors[name]
	return ok
}

// Instantiate validates the definition's params against the engine's schema
// and constructs the instance.
func (r *Registry) Instantiate(m *manifest.Manifest, deps Deps) (Instance, error) {
	ctor, ok := r.ctors[m.Engine()]
	if !ok {
		return nil, fmt.Errorf("handler %s: unknown engine %q", m.Name(), m.Engine())
	}

	if schema := r.schemas[m.Engine()]; schema != nil {
		if err := validateParams(schema, m.Params()); err != nil {
			return nil, fmt.Errorf("handler %s: %w", m.Name(), err)
		}
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return ctor(m, deps)
}

// reflectSchema turns a params struct into a compiled JSON schema.
func reflectSchema(name string, model any) (*jsonschema.Schema, error) {
	reflector := new(invopop.Reflector)
	reflector.ExpandedStruct = true
	reflector.DoNotReference = true

	raw, err := json.Marshal(reflector.Reflect(model))
	if err != nil {
		return nil, fmt.Errorf("engine %s: marshaling params schema: %w", name, err)
	}
	schema, err := jsonschema.CompileString(name+"-params.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("engine %s: compiling params schema: %w", name, err)
	}
	return schema, nil
}

// validateParams checks a params map against a compiled schema, round-
// tripping through encoding/json so the validator sees canonical JSON types.
func validateParams(schema *jsonschema.Schema, params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// decodeParams populates a params struct from the definition's params map.
func decodeParams(params map[string]any, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// base carries the identity every built-in instance shares.
type base struct {
	name     values.Name
	kind     entities.Kind
	version  values.Version
	produces datakind.Kind
}

func newBase(m *manifest.Manifest) base {
	return base{
		name:     m.Name(),
		kind:     m.Kind(),
		version:  m.Version(),
		produces: m.Produces(),
	}
}

func (b base) Name() values.Name       { return b.name }
func (b base) Kind() entities.Kind     { return b.kind }
func (b base) Version() values.Version { return b.version }
func (b base) Produces() datakind.Kind { return b.produces }
