// Package returners provides the built-in side-output sinks a block's
// return keyword can name.
package returners

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// Stdout writes each recorded entry to w as a YAML document. Safe for
// concurrent use.
type Stdout struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: w}
}

func (r *Stdout) Record(_ context.Context, entry fdg.ReturnEntry) error {
	doc := map[string]any{
		"routine": entry.Routine,
		"block":   entry.BlockID,
		"value":   entry.Value,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling return entry for block %q: %w", entry.BlockID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := fmt.Fprintf(r.w, "---\n%s", data); err != nil {
		return fmt.Errorf("writing return entry for block %q: %w", entry.BlockID, err)
	}
	return nil
}
