package fdg_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/goravsingal/hubble/pkg/fdg"
	"github.com/goravsingal/hubble/pkg/fdg/returners"
)

// stubModule wires test behavior into the registry without touching the
// built-in modules.
type stubModule struct {
	validate func(fdg.Call) error
	invoke   func(context.Context, fdg.Call) (fdg.Result, error)
}

func (m *stubModule) ValidateParams(call fdg.Call) error {
	if m.validate != nil {
		return m.validate(call)
	}
	return nil
}

func (m *stubModule) Invoke(ctx context.Context, call fdg.Call) (fdg.Result, error) {
	return m.invoke(ctx, call)
}

// echo returns the chained value with a truthy status.
func echo() *stubModule {
	return &stubModule{invoke: func(_ context.Context, call fdg.Call) (fdg.Result, error) {
		return fdg.Positive(call.Chained), nil
	}}
}

// constant ignores the chained value and returns (status, value).
func constant(status, value any) *stubModule {
	return &stubModule{invoke: func(context.Context, fdg.Call) (fdg.Result, error) {
		return fdg.Result{Status: status, Value: value}, nil
	}}
}

func mustLoad(t *testing.T, yaml string) *fdg.Document {
	t.Helper()
	doc, err := fdg.Load([]byte(yaml), "test.fdg")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return doc
}

func newExecutor(mods map[string]fdg.Module) *fdg.Executor {
	reg := fdg.NewRegistry()
	for name, m := range mods {
		reg.Register(name, m)
	}
	return &fdg.Executor{Modules: reg}
}

// ─── pipe / xpipe semantics ───────────────────────────────────────────────────

func TestEvaluate_PipeForwardsWholeValue(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.list
  pipe: consume
consume:
  module: test.echo
`)
	var seen []any
	mods := map[string]fdg.Module{
		"test.list": constant(true, []any{1, 2, 3}),
		"test.echo": &stubModule{invoke: func(_ context.Context, call fdg.Call) (fdg.Result, error) {
			seen = append(seen, call.Chained)
			return fdg.Positive(call.Chained), nil
		}},
	}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("consume invoked %d times, want 1", len(seen))
	}
	if !reflect.DeepEqual(seen[0], []any{1, 2, 3}) {
		t.Errorf("consume chained = %#v, want the whole list", seen[0])
	}
	if !reflect.DeepEqual(out, []any{1, 2, 3}) {
		t.Errorf("result = %#v, want [1 2 3]", out)
	}
}

func TestEvaluate_XPipeIteratesInOrder(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.list
  xpipe: consume
consume:
  module: test.echo
`)
	var seen []any
	mods := map[string]fdg.Module{
		"test.list": constant(true, []any{"a", "b", "c"}),
		"test.echo": &stubModule{invoke: func(_ context.Context, call fdg.Call) (fdg.Result, error) {
			seen = append(seen, call.Chained)
			return fdg.Positive(call.Chained), nil
		}},
	}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !reflect.DeepEqual(seen, []any{"a", "b", "c"}) {
		t.Errorf("invocation order = %#v, want [a b c]", seen)
	}
	if !reflect.DeepEqual(out, []any{"a", "b", "c"}) {
		t.Errorf("result = %#v, want sub-results in element order", out)
	}
}

func TestEvaluate_XPipeNonIterable(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.scalar
  xpipe: consume
consume:
  module: test.echo
`)
	mods := map[string]fdg.Module{
		"test.scalar": constant(true, 42),
		"test.echo":   echo(),
	}

	_, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	var notIterable *fdg.NotIterableError
	if !errors.As(err, &notIterable) {
		t.Fatalf("err = %v, want NotIterableError", err)
	}
	if notIterable.BlockID != "main" {
		t.Errorf("BlockID = %q, want main", notIterable.BlockID)
	}
}

func TestEvaluate_XPipeEmptyList(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.list
  xpipe: consume
consume:
  module: test.echo
`)
	mods := map[string]fdg.Module{
		"test.list": constant(true, []any{}),
		"test.echo": echo(),
	}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	list, ok := out.([]any)
	if !ok || len(list) != 0 {
		t.Errorf("result = %#v, want empty list", out)
	}
}

// A block declaring both pipe and xpipe_on_true must act on xpipe_on_true
// for a truthy status and never touch the pipe target.
func TestEvaluate_ConditionalWinsAtRuntime(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.list
  pipe: never
  xpipe_on_true: each
each:
  module: test.count
never:
  module: test.fail
`)
	invocations := 0
	mods := map[string]fdg.Module{
		"test.list": constant(true, []any{10, 20}),
		"test.count": &stubModule{invoke: func(_ context.Context, call fdg.Call) (fdg.Result, error) {
			invocations++
			return fdg.Positive(call.Chained), nil
		}},
		"test.fail": &stubModule{invoke: func(context.Context, fdg.Call) (fdg.Result, error) {
			t.Error("pipe target must not run when xpipe_on_true is eligible")
			return fdg.Positive(nil), nil
		}},
	}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if invocations != 2 {
		t.Errorf("each invoked %d times, want 2", invocations)
	}
	if !reflect.DeepEqual(out, []any{10, 20}) {
		t.Errorf("result = %#v, want [10 20]", out)
	}
}

func TestEvaluate_SoftFailureIsTerminal(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.missing
  pipe_on_true: next
next:
  module: test.echo
`)
	mods := map[string]fdg.Module{
		"test.missing": constant(false, map[string]any{"error": "file_not_found"}),
		"test.echo":    echo(),
	}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("soft failure must not be a run error, got %v", err)
	}
	want := map[string]any{"error": "file_not_found"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("result = %#v, want %#v", out, want)
	}
}

func TestEvaluate_OnFalseRoutesSoftFailure(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.missing
  pipe_on_false: recover
recover:
  module: test.echo
`)
	mods := map[string]fdg.Module{
		"test.missing": constant(false, map[string]any{"error": "file_not_found"}),
		"test.echo":    echo(),
	}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := map[string]any{"error": "file_not_found"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("result = %#v, want the failure payload forwarded", out)
	}
}

// ─── lazy validation ──────────────────────────────────────────────────────────

func TestEvaluate_UnknownBlock(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.echo
  pipe: nowhere
`)
	mods := map[string]fdg.Module{"test.echo": echo()}

	_, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	var unknown *fdg.UnknownBlockError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownBlockError", err)
	}
	if unknown.BlockID != "nowhere" || unknown.Referrer != "main" {
		t.Errorf("got block %q referrer %q, want nowhere referred from main", unknown.BlockID, unknown.Referrer)
	}
}

func TestEvaluate_UnknownCapability(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: no.such
`)
	_, err := newExecutor(nil).Evaluate(context.Background(), doc, "main", nil)
	var unknown *fdg.UnknownCapabilityError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownCapabilityError", err)
	}
}

// A broken branch that is never taken must not affect the run.
func TestEvaluate_BrokenBranchNotTaken(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.ok
  pipe_on_false: broken
broken:
  module: does.not.exist
  pipe: nowhere
`)
	mods := map[string]fdg.Module{"test.ok": constant(true, "fine")}

	out, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("unreached broken branch must not fail the run: %v", err)
	}
	if out != "fine" {
		t.Errorf("result = %#v, want fine", out)
	}
}

func TestEvaluate_ValidationFailureIsFatal(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.strict
`)
	mods := map[string]fdg.Module{
		"test.strict": &stubModule{
			validate: func(fdg.Call) error { return fmt.Errorf("mandatory parameter %q not found", "path") },
			invoke: func(context.Context, fdg.Call) (fdg.Result, error) {
				t.Error("Invoke must not run after a validation failure")
				return fdg.Positive(nil), nil
			},
		},
	}

	_, err := newExecutor(mods).Evaluate(context.Background(), doc, "main", nil)
	var invalid *fdg.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

// ─── recursion limit ──────────────────────────────────────────────────────────

func TestEvaluate_RecursionLimit(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.echo
  pipe: main
`)
	reg := fdg.NewRegistry()
	reg.Register("test.echo", echo())
	exec := &fdg.Executor{Modules: reg, MaxDepth: 10}

	_, err := exec.Evaluate(context.Background(), doc, "main", nil)
	var limit *fdg.RecursionLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("err = %v, want RecursionLimitError", err)
	}
	if limit.Limit != 10 {
		t.Errorf("Limit = %d, want 10", limit.Limit)
	}
}

// ─── return keyword ───────────────────────────────────────────────────────────

func TestEvaluate_ReturnRecordsResolvedValue(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.list
  return: memory
  xpipe: each
each:
  module: test.echo
`)
	reg := fdg.NewRegistry()
	reg.Register("test.list", constant(true, []any{1, 2}))
	reg.Register("test.echo", echo())

	mem := returners.NewMemory()
	rets := fdg.NewReturnerRegistry()
	rets.Register("memory", mem)
	exec := &fdg.Executor{Modules: reg, Returners: rets}

	out, err := exec.Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	entries := mem.Entries()
	if len(entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(entries))
	}
	// The recorded value is the block's fully-resolved value, i.e. the
	// collected xpipe results, not the raw module output.
	if !reflect.DeepEqual(entries[0].Value, []any{1, 2}) {
		t.Errorf("recorded value = %#v, want [1 2]", entries[0].Value)
	}
	if entries[0].BlockID != "main" || entries[0].Routine != "test.fdg" {
		t.Errorf("entry tagged (%q, %q), want (test.fdg, main)", entries[0].Routine, entries[0].BlockID)
	}
	if !reflect.DeepEqual(out, []any{1, 2}) {
		t.Errorf("result = %#v, want [1 2]", out)
	}
}

func TestEvaluate_ReturnerFailureNotFatal(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.ok
  return: flaky
`)
	reg := fdg.NewRegistry()
	reg.Register("test.ok", constant(true, "value"))

	rets := fdg.NewReturnerRegistry()
	rets.Register("flaky", returnerFunc(func(context.Context, fdg.ReturnEntry) error {
		return fmt.Errorf("sink unavailable")
	}))
	exec := &fdg.Executor{Modules: reg, Returners: rets}

	out, err := exec.Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("returner failure must not fail the run: %v", err)
	}
	if out != "value" {
		t.Errorf("result = %#v, want value", out)
	}
}

func TestEvaluate_UnregisteredReturnerNotFatal(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.ok
  return: ghost
`)
	reg := fdg.NewRegistry()
	reg.Register("test.ok", constant(true, "value"))
	exec := &fdg.Executor{Modules: reg, Returners: fdg.NewReturnerRegistry()}

	out, err := exec.Evaluate(context.Background(), doc, "main", nil)
	if err != nil {
		t.Fatalf("missing returner must not fail the run: %v", err)
	}
	if out != "value" {
		t.Errorf("result = %#v, want value", out)
	}
}

type returnerFunc func(context.Context, fdg.ReturnEntry) error

func (f returnerFunc) Record(ctx context.Context, entry fdg.ReturnEntry) error {
	return f(ctx, entry)
}

// ─── cancellation ─────────────────────────────────────────────────────────────

func TestEvaluate_ContextCancelled(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.echo
`)
	mods := map[string]fdg.Module{"test.echo": echo()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newExecutor(mods).Evaluate(ctx, doc, "main", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
