package fdg

import "sort"

// Registry maps "namespace.function" identifiers to Module
// implementations. It is built once at process start and read-only
// during runs.
type Registry struct {
	modules map[string]Module
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register associates a module with an identifier, replacing any
// previous registration.
func (r *Registry) Register(name string, m Module) {
	r.modules[name] = m
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns all registered identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
