/*
Package room holds the Room Registry, the fixed ordered set of chat room names that are
valid for the lifetime of the process.
*/
package room

// Registry is an immutable ordered set of room names. It is safe for concurrent use.
type Registry struct {
	names []string
	index map[string]struct{}
}

// NewRegistry builds a registry from names, dropping blanks and duplicates while keeping order.
func NewRegistry(names []string) *Registry {
	r := &Registry{
		names: make([]string, 0, len(names)),
		index: make(map[string]struct{}, len(names)),
	}

	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := r.index[name]; dup {
			continue
		}
		r.index[name] = struct{}{}
		r.names = append(r.names, name)
	}

	return r
}

// IsValid reports whether name is one of the registered rooms. Matching is case sensitive.
func (r *Registry) IsValid(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns a copy of the room names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of rooms.
func (r *Registry) Len() int {
	return len(r.names)
}
