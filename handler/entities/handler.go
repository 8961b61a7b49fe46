package entities

import "github.com/inlay-dev/inlay-core/handler/values"

// Descriptor identifies one installed handler artifact. Descriptors are
// created when a handler is located on disk or downloaded, and replaced
// wholesale on update; there is never more than one on-disk artifact per
// handler name.
type Descriptor struct {
	name        values.Name
	kind        Kind
	installPath string
	version     values.Version
	protocol    values.Version
}

// NewDescriptor creates a descriptor for an installed handler.
func NewDescriptor(
	name values.Name,
	kind Kind,
	installPath string,
	version values.Version,
	protocol values.Version,
) *Descriptor {
	return &Descriptor{
		name:        name,
		kind:        kind,
		installPath: installPath,
		version:     version,
		protocol:    protocol,
	}
}

// Name returns the handler's identifier.
func (d *Descriptor) Name() values.Name {
	return d.name
}

// Kind returns the capability class of the installed artifact.
func (d *Descriptor) Kind() Kind {
	return d.kind
}

// InstallPath returns the on-disk location of the handler file.
func (d *Descriptor) InstallPath() string {
	return d.installPath
}

// Version returns the locally installed code version.
func (d *Descriptor) Version() values.Version {
	return d.version
}

// Protocol returns the system protocol version the handler's code declares
// compatibility with.
func (d *Descriptor) Protocol() values.Version {
	return d.protocol
}

// CompatibleWith reports whether the declared protocol equals the runtime's
// required protocol version. Anything else must not be loaded.
func (d *Descriptor) CompatibleWith(required values.Version) bool {
	return d.protocol.Equal(required)
}
