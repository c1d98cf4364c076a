package fdg

import "context"

// ReturnEntry is one recorded side output: a block's fully-resolved
// value, tagged with its origin.
type ReturnEntry struct {
	Routine string
	BlockID string
	Value   any
}

// Returner is a sink for block values flagged with the return keyword.
// Recording is a side effect only; it never alters what the run returns.
type Returner interface {
	Record(ctx context.Context, entry ReturnEntry) error
}

// ReturnerRegistry maps returner names to implementations.
type ReturnerRegistry struct {
	returners map[string]Returner
}

// NewReturnerRegistry creates an empty ReturnerRegistry.
func NewReturnerRegistry() *ReturnerRegistry {
	return &ReturnerRegistry{returners: make(map[string]Returner)}
}

// Register associates a returner with a name.
func (r *ReturnerRegistry) Register(name string, ret Returner) {
	r.returners[name] = ret
}

// Get returns the returner registered under name.
func (r *ReturnerRegistry) Get(name string) (Returner, bool) {
	if r == nil {
		return nil, false
	}
	ret, ok := r.returners[name]
	return ret, ok
}
