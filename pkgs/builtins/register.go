package builtins

import "github.com/aledsdavies/skelc/pkgs/registry"

// RegisterDefaults populates reg with the spec.md §6 default function,
// method, and filter tables. Mirrors the teacher's
// decorators.RegisterFunctionDecorator-style bulk registration, collapsed
// into one call site used by both the library's NewWithDefaults-equivalent
// and the CLI's registry construction.
func RegisterDefaults(reg *registry.Registry) {
	for name, fn := range Functions() {
		reg.RegisterFunction(name, registry.Function(fn))
	}
	for name, fn := range Methods() {
		reg.RegisterMethod(name, registry.Method(fn))
	}
	for name, fn := range Filters() {
		reg.RegisterFilter(name, registry.Filter(fn))
	}
}
