package fdg

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EntryBlockID is the reserved id of a routine's entry point.
const EntryBlockID = "main"

// Block is one named step in a routine: one module function to invoke,
// its literal parameters, an optional returner, and up to six chaining
// keywords naming other blocks in the same document.
type Block struct {
	ID string `mapstructure:"-"`

	Module string         `mapstructure:"module"`
	Args   []any          `mapstructure:"args"`
	Kwargs map[string]any `mapstructure:"kwargs"`
	Return string         `mapstructure:"return"`

	Pipe         string `mapstructure:"pipe"`
	XPipe        string `mapstructure:"xpipe"`
	PipeOnTrue   string `mapstructure:"pipe_on_true"`
	PipeOnFalse  string `mapstructure:"pipe_on_false"`
	XPipeOnTrue  string `mapstructure:"xpipe_on_true"`
	XPipeOnFalse string `mapstructure:"xpipe_on_false"`
}

// Document is a loaded, validated routine: an immutable set of blocks
// keyed by id, with a guaranteed "main" entry point.
type Document struct {
	Name   string
	Blocks map[string]*Block
}

// Load parses a routine document from YAML. name is used only for error
// messages and run keys. Chain targets and module identifiers are
// deliberately not resolved here: a document may carry unreachable
// broken branches and still run, so those checks happen at evaluation
// time (or via Lint).
func Load(data []byte, name string) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedRoutineError{Routine: name, Reason: fmt.Sprintf("invalid yaml: %v", err)}
	}
	if raw == nil {
		return nil, &MalformedRoutineError{Routine: name, Reason: "document is empty"}
	}

	doc := &Document{Name: name, Blocks: make(map[string]*Block, len(raw))}
	for id, rawBlock := range raw {
		fields, ok := rawBlock.(map[string]any)
		if !ok {
			return nil, &MalformedRoutineError{
				Routine: name,
				Reason:  fmt.Sprintf("block %q is not a mapping (got %T)", id, rawBlock),
			}
		}
		block := &Block{ID: id}
		if err := decodeBlock(fields, block); err != nil {
			return nil, &MalformedRoutineError{
				Routine: name,
				Reason:  fmt.Sprintf("block %q: %v", id, err),
			}
		}
		doc.Blocks[id] = block
	}

	if _, ok := doc.Blocks[EntryBlockID]; !ok {
		return nil, &MalformedRoutineError{Routine: name, Reason: `no "main" block`}
	}
	return doc, nil
}

// LoadFile reads and parses a routine document from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routine file: %w", err)
	}
	return Load(data, path)
}

// decodeBlock maps the raw YAML fields onto a Block. Unknown keys (e.g.
// description annotations) are ignored.
func decodeBlock(fields map[string]any, block *Block) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           block,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

// LintError describes a static finding in a routine document. Findings
// are advisory: run semantics stay lazy regardless.
type LintError struct {
	BlockID string
	Message string
}

func (e LintError) Error() string {
	if e.BlockID != "" {
		return fmt.Sprintf("block %q: %s", e.BlockID, e.Message)
	}
	return e.Message
}

// Lint reports dangling chain targets, malformed module identifiers and
// blocks unreachable from main. It returns all findings, not just the
// first.
func (d *Document) Lint() []LintError {
	var errs []LintError

	ids := make([]string, 0, len(d.Blocks))
	for id := range d.Blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		block := d.Blocks[id]
		if block.Module == "" {
			errs = append(errs, LintError{BlockID: id, Message: "missing module"})
		} else if !validModuleName(block.Module) {
			errs = append(errs, LintError{
				BlockID: id,
				Message: fmt.Sprintf("module %q is not of the form namespace.function", block.Module),
			})
		}
		for _, d2 := range block.directives() {
			if _, ok := d.Blocks[d2.target]; !ok {
				errs = append(errs, LintError{
					BlockID: id,
					Message: fmt.Sprintf("%s names unknown block %q", d2.keyword, d2.target),
				})
			}
		}
	}

	reachable := d.reachableFrom(EntryBlockID)
	for _, id := range ids {
		if !reachable[id] {
			errs = append(errs, LintError{BlockID: id, Message: "block is not reachable from main"})
		}
	}

	return errs
}

// reachableFrom returns the set of block ids reachable from start via
// chaining keywords.
func (d *Document) reachableFrom(start string) map[string]bool {
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		block, ok := d.Blocks[cur]
		if !ok {
			continue
		}
		for _, dir := range block.directives() {
			if !visited[dir.target] {
				queue = append(queue, dir.target)
			}
		}
	}
	return visited
}

// validModuleName reports whether name is "namespace.function" with both
// parts non-empty.
func validModuleName(name string) bool {
	ns, fn, ok := strings.Cut(name, ".")
	return ok && ns != "" && fn != ""
}
