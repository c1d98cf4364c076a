package fdg_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goravsingal/hubble/pkg/fdg"
)

func TestRunner_Run(t *testing.T) {
	doc := mustLoad(t, `
main:
  module: test.echo
`)
	reg := fdg.NewRegistry()
	reg.Register("test.echo", echo())
	runner := &fdg.Runner{Modules: reg}

	out, err := runner.Run(context.Background(), doc, "starter")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "starter" {
		t.Errorf("result = %#v, want the starting value", out)
	}
}

func TestRunner_RunNilDocument(t *testing.T) {
	runner := &fdg.Runner{Modules: fdg.NewRegistry()}
	if _, err := runner.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil document")
	}
}

func TestRunner_RunFileKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.fdg")
	if err := os.WriteFile(path, []byte("main:\n  module: test.echo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := fdg.NewRegistry()
	reg.Register("test.echo", echo())
	runner := &fdg.Runner{Modules: reg}

	key, out, err := runner.RunFile(context.Background(), path, 42)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if key.Routine != path {
		t.Errorf("key.Routine = %q, want %q", key.Routine, path)
	}
	if key.StartingChained != "42" {
		t.Errorf("key.StartingChained = %q, want \"42\"", key.StartingChained)
	}
	if out != 42 {
		t.Errorf("result = %#v, want 42", out)
	}
}

func TestNewRunKey_NilStarting(t *testing.T) {
	key := fdg.NewRunKey("r.fdg", nil)
	if key.StartingChained != "" {
		t.Errorf("StartingChained = %q, want empty for nil", key.StartingChained)
	}
	if key.Seeded {
		t.Error("Seeded = true, want false for nil starting value")
	}
}

// An explicit empty-string seed must not collide with no seed at all,
// or two such topfile entries would overwrite one another's results.
func TestNewRunKey_EmptyStartingDistinct(t *testing.T) {
	seeded := fdg.NewRunKey("r.fdg", "")
	unseeded := fdg.NewRunKey("r.fdg", nil)
	if seeded == unseeded {
		t.Fatalf("key for empty seed %+v equals unseeded key %+v", seeded, unseeded)
	}
	if !seeded.Seeded {
		t.Error("Seeded = false, want true for an explicit empty string")
	}
}
