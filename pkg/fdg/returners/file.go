package returners

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// File appends recorded entries as JSON lines to one file per routine
// under Dir. Safe for concurrent use.
type File struct {
	mu  sync.Mutex
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

// routineFileName flattens a routine name to a single path segment.
// Routine names are usually file paths, so separators are escaped to
// keep every sink file directly under Dir.
func routineFileName(routine string) string {
	name := strings.ReplaceAll(routine, string(os.PathSeparator), "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "routine"
	}
	return name + ".jsonl"
}

type fileEntry struct {
	Time    string `json:"time"`
	Routine string `json:"routine"`
	Block   string `json:"block"`
	Value   any    `json:"value"`
}

func (r *File) Record(_ context.Context, entry fdg.ReturnEntry) error {
	line, err := json.Marshal(fileEntry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Routine: entry.Routine,
		Block:   entry.BlockID,
		Value:   entry.Value,
	})
	if err != nil {
		return fmt.Errorf("marshaling return entry for block %q: %w", entry.BlockID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating return directory: %w", err)
	}
	path := filepath.Join(r.dir, routineFileName(entry.Routine))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening return file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing return file: %w", err)
	}
	return nil
}
