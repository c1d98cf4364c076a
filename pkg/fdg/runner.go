package fdg

import (
	"context"
	"fmt"
	"log/slog"
)

// RunKey identifies one routine run: the routine path and the starting
// chained value dumped to a string. It is the map key used by topfile
// dispatch. Seeded separates an explicit starting value from none, so
// a run seeded with an empty string keys differently from an unseeded
// one.
type RunKey struct {
	Routine         string
	StartingChained string
	Seeded          bool
}

// NewRunKey builds the key for a routine run.
func NewRunKey(routine string, starting any) RunKey {
	key := RunKey{Routine: routine}
	if starting != nil {
		key.Seeded = true
		key.StartingChained = fmt.Sprintf("%v", starting)
	}
	return key
}

// Runner is the public entry point for executing routines. Zero value
// is not usable: Modules must be set. Returners, MaxDepth and Logger
// are optional.
type Runner struct {
	Modules   *Registry
	Returners *ReturnerRegistry
	MaxDepth  int
	Logger    *slog.Logger
}

// Run evaluates a loaded document starting at its main block, seeding
// the module with starting as the chained value (nil for none). The
// final bubbled value is returned; any fatal error aborts the run with
// no partial result.
func (r *Runner) Run(ctx context.Context, doc *Document, starting any) (any, error) {
	if doc == nil {
		return nil, fmt.Errorf("routine document must not be nil")
	}
	exec := &Executor{
		Modules:   r.Modules,
		Returners: r.Returners,
		MaxDepth:  r.MaxDepth,
		Logger:    r.Logger,
	}
	r.logger().Info("running routine", "routine", doc.Name)
	result, err := exec.Evaluate(ctx, doc, EntryBlockID, starting)
	if err != nil {
		return nil, fmt.Errorf("routine %q: %w", doc.Name, err)
	}
	return result, nil
}

// RunFile loads a routine file and runs it, returning the run key
// alongside the result.
func (r *Runner) RunFile(ctx context.Context, path string, starting any) (RunKey, any, error) {
	key := NewRunKey(path, starting)
	doc, err := LoadFile(path)
	if err != nil {
		return key, nil, err
	}
	result, err := r.Run(ctx, doc, starting)
	return key, result, err
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
