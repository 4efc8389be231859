package emulator

import (
	"strings"

	"emuram/process"
)

// Entry maps a process or module name to the backend that handles it
type Entry[T comparable] struct {
	Name string
	Tag  T
}

// Registry is an immutable, ordered name table. Several entries may share a
// tag when one backend serves differently named executables or cores.
type Registry[T comparable] struct {
	entries []Entry[T]
}

func NewRegistry[T comparable](entries ...Entry[T]) Registry[T] {
	return Registry[T]{entries: append([]Entry[T](nil), entries...)}
}

// Entries returns a copy of the table in priority order
func (r Registry[T]) Entries() []Entry[T] {
	return append([]Entry[T](nil), r.entries...)
}

// Names lists the names tagged for a backend, in table order
func (r Registry[T]) Names(tag T) []string {
	var names []string
	for _, e := range r.entries {
		if e.Tag == tag {
			names = append(names, e.Name)
		}
	}
	return names
}

// Lookup returns the entry for a name, ignoring case
func (r Registry[T]) Lookup(name string) (Entry[T], bool) {
	for _, e := range r.entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry[T]{}, false
}

// ModuleRange tries each module tagged for tag until one is loaded
func (r Registry[T]) ModuleRange(p process.Process, tag T) (process.Address, uint64, bool) {
	for _, name := range r.Names(tag) {
		if base, size, err := p.GetModuleRange(name); err == nil {
			return base, size, true
		}
	}
	return process.NULL, 0, false
}

// ModuleAddress is ModuleRange without the size
func (r Registry[T]) ModuleAddress(p process.Process, tag T) (process.Address, bool) {
	base, _, ok := r.ModuleRange(p, tag)
	return base, ok
}

// FindModule returns the first entry in table order whose module is loaded
func (r Registry[T]) FindModule(p process.Process) (Entry[T], process.Address, uint64, bool) {
	for _, e := range r.entries {
		if base, size, err := p.GetModuleRange(e.Name); err == nil {
			return e, base, size, true
		}
	}
	return Entry[T]{}, process.NULL, 0, false
}

// Attach opens the first running process named in the table
func (r Registry[T]) Attach(opener process.Opener) (process.Process, Entry[T], bool) {
	for _, e := range r.entries {
		p, err := opener.OpenProcessByName(e.Name)
		if err == nil {
			return p, e, true
		}
	}
	return nil, Entry[T]{}, false
}
