// Package manifest parses and validates handler definition files. A handler
// definition is a YAML document whose first line is a magic marker; the
// marker doubles as the structural sniff applied to downloaded code before
// it is trusted.
package manifest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inlay-dev/inlay-core/datakind"
	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/values"
)

// Magic is the required first line of every handler definition file.
const Magic = "# inlay-handler v1"

// document is the raw YAML shape of a handler definition.
type document struct {
	Params      map[string]any `yaml:"params"`
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"`
	Version     string         `yaml:"version"`
	Protocol    string         `yaml:"protocol"`
	Engine      string         `yaml:"engine"`
	Produces    string         `yaml:"produces"`
	UpdateTimes []string       `yaml:"update_times"`
}

// Manifest is a parsed, validated handler definition.
type Manifest struct {
	params      map[string]any
	engine      string
	updateTimes []string
	name        values.Name
	version     values.Version
	protocol    values.Version
	kind        entities.Kind
	produces    datakind.Kind
}

// Sniff reports whether data looks like a handler definition: the first
// non-blank line must be the magic marker. This is the cheap structural
// check applied to registry downloads.
func Sniff(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), "\r")
		if line == "" {
			continue
		}
		return line == Magic
	}
	return false
}

// Parse decodes and validates a handler definition.
func Parse(data []byte) (*Manifest, error) {
	if !Sniff(data) {
		return nil, fmt.Errorf("not a handler definition: missing %q marker", Magic)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding handler definition: %w", err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, err
	}

	name, err := values.NewName(doc.Name)
	if err != nil {
		return nil, fmt.Errorf("handler definition: %w", err)
	}
	kind, err := entities.ParseKind(doc.Kind)
	if err != nil {
		return nil, fmt.Errorf("handler definition %s: %w", doc.Name, err)
	}
	version, err := values.ParseVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("handler definition %s: %w", doc.Name, err)
	}
	protocol, err := values.ParseVersion(doc.Protocol)
	if err != nil {
		return nil, fmt.Errorf("handler definition %s: invalid protocol: %w", doc.Name, err)
	}

	produces := datakind.Invalid
	if doc.Produces != "" {
		produces, err = datakind.ParseKind(doc.Produces)
		if err != nil {
			return nil, fmt.Errorf("handler definition %s: %w", doc.Name, err)
		}
	}

	return &Manifest{
		name:        name,
		kind:        kind,
		version:     version,
		protocol:    protocol,
		engine:      doc.Engine,
		produces:    produces,
		updateTimes: doc.UpdateTimes,
		params:      doc.Params,
	}, nil
}

// Name returns the handler's declared name.
func (m *Manifest) Name() values.Name { return m.name }

// Kind returns the declared capability class. For downloads of brand-new
// handlers this decides which kind directory receives the file.
func (m *Manifest) Kind() entities.Kind { return m.kind }

// Version returns the declared code version.
func (m *Manifest) Version() values.Version { return m.version }

// Protocol returns the system protocol version the definition declares
// compatibility with.
func (m *Manifest) Protocol() values.Version { return m.protocol }

// Engine returns the compiled-in engine this definition binds to.
func (m *Manifest) Engine() string { return m.engine }

// Produces returns the declared output data kind, or datakind.Invalid when
// the definition does not declare one.
func (m *Manifest) Produces() datakind.Kind { return m.produces }

// UpdateTimes returns the declared refresh schedule strings.
func (m *Manifest) UpdateTimes() []string { return m.updateTimes }

// Params returns the engine-specific parameters.
func (m *Manifest) Params() map[string]any { return m.params }
