package fdg

import "context"

// Result is the two-part return of every module invocation. Status is
// evaluated for truthiness by the conditional chaining keywords; Value
// is forwarded to chained blocks or bubbled back up the chain. The two
// are deliberately independent so a module can branch on a boolean while
// forwarding a richer structure.
type Result struct {
	Status any
	Value  any
}

// Positive builds a successful Result carrying v.
func Positive(v any) Result {
	return Result{Status: true, Value: v}
}

// Negative builds a soft-failure Result. It is not an error: a falsy
// status is a legitimate terminal outcome (e.g. "file not found") and
// the *_on_false keywords can still route it onward.
func Negative(reason string) Result {
	return Result{Status: false, Value: map[string]any{"error": reason}}
}

// Call carries one block invocation to a module: the literal args and
// kwargs from the block plus the chained value from upstream (nil when
// the block is the entry point and no starting value was supplied).
type Call struct {
	BlockID string
	Args    []any
	Kwargs  map[string]any
	Chained any
}

// Param returns the named kwarg, falling back to positional arg pos.
// pos < 0 disables the positional fallback.
func (c Call) Param(name string, pos int) (any, bool) {
	if v, ok := c.Kwargs[name]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(c.Args) {
		return c.Args[pos], true
	}
	return nil, false
}

// StringParam is Param for string-typed parameters; non-strings report
// absent.
func (c Call) StringParam(name string, pos int) (string, bool) {
	v, ok := c.Param(name, pos)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Module is one registered capability function. Implementations live in
// the modules sub-package; the interface is defined here so the executor
// can dispatch without an import cycle.
type Module interface {
	// ValidateParams checks that the call carries every mandatory
	// parameter. A returned error is fatal to the whole run.
	ValidateParams(call Call) error

	// Invoke performs the read-only work and returns a (status, value)
	// pair. Errors are reserved for contract violations; absent
	// resources are reported as a Negative result instead.
	Invoke(ctx context.Context, call Call) (Result, error)
}
