package interp

import (
	"sort"

	"github.com/morroware/retroscript/pkg/value"
)

// Environment is the single flat variable mapping a running script
// mutates. Function calls snapshot it in full and restore it on exit,
// which gives the language dynamic scoping instead of closures.
type Environment struct {
	vars map[string]value.Value
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]value.Value)}
}

// Get returns the value bound to name.
func (e *Environment) Get(name string) (value.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds name to v, replacing any previous binding.
func (e *Environment) Set(name string, v value.Value) {
	e.vars[name] = v
}

// Delete removes a binding. Deleting an unbound name is a no-op.
func (e *Environment) Delete(name string) {
	delete(e.vars, name)
}

// Len returns the number of bindings.
func (e *Environment) Len() int { return len(e.vars) }

// Names returns the bound names in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for n := range e.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot deep-copies every binding. The copy shares nothing with the
// live environment, so later mutations cannot leak backwards.
func (e *Environment) Snapshot() map[string]value.Value {
	snap := make(map[string]value.Value, len(e.vars))
	for n, v := range e.vars {
		snap[n] = v.Clone()
	}
	return snap
}

// Restore replaces the entire environment with a snapshot. Bindings
// created after the snapshot are discarded wholesale.
func (e *Environment) Restore(snap map[string]value.Value) {
	e.vars = snap
}
