package fdg

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// topfileKey is the single recognized top-level key of a topfile.
const topfileKey = "fdg"

// RoutineRef is one routine listed under a topfile match: a bare name,
// or a name with a starting chained value.
type RoutineRef struct {
	Name            string
	StartingChained any
}

// TopfileEntry maps one target-match expression to an ordered list of
// routine references.
type TopfileEntry struct {
	Match    string
	Routines []RoutineRef
}

// Topfile is a loaded topfile. Entries preserve document order so runs
// stay deterministic.
type Topfile struct {
	Name    string
	Entries []TopfileEntry
}

// LoadTopfile parses a topfile from YAML. name is used for error
// messages.
func LoadTopfile(data []byte, name string) (*Topfile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &MalformedTopfileError{Topfile: name, Reason: fmt.Sprintf("invalid yaml: %v", err)}
	}
	if len(root.Content) == 0 {
		return nil, &MalformedTopfileError{Topfile: name, Reason: "document is empty"}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, &MalformedTopfileError{Topfile: name, Reason: "top level is not a mapping"}
	}

	var section *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == topfileKey {
			section = doc.Content[i+1]
			break
		}
	}
	if section == nil {
		return nil, &MalformedTopfileError{Topfile: name, Reason: `missing "fdg" key`}
	}
	if section.Kind != yaml.MappingNode {
		return nil, &MalformedTopfileError{Topfile: name, Reason: `"fdg" value is not a mapping`}
	}

	top := &Topfile{Name: name}
	for i := 0; i+1 < len(section.Content); i += 2 {
		match := section.Content[i].Value
		list := section.Content[i+1]
		if list.Kind != yaml.SequenceNode {
			return nil, &MalformedTopfileError{
				Topfile: name,
				Reason:  fmt.Sprintf("match %q: routines must be a sequence", match),
			}
		}
		entry := TopfileEntry{Match: match}
		for _, item := range list.Content {
			ref, err := decodeRoutineRef(item)
			if err != nil {
				return nil, &MalformedTopfileError{
					Topfile: name,
					Reason:  fmt.Sprintf("match %q: %v", match, err),
				}
			}
			entry.Routines = append(entry.Routines, ref)
		}
		top.Entries = append(top.Entries, entry)
	}
	return top, nil
}

// LoadTopfileFile reads and parses a topfile from disk.
func LoadTopfileFile(path string) (*Topfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topfile: %w", err)
	}
	return LoadTopfile(data, path)
}

// decodeRoutineRef accepts either a bare routine name or a single-entry
// mapping of routine name to starting value.
func decodeRoutineRef(item *yaml.Node) (RoutineRef, error) {
	switch item.Kind {
	case yaml.ScalarNode:
		return RoutineRef{Name: item.Value}, nil
	case yaml.MappingNode:
		if len(item.Content) != 2 {
			return RoutineRef{}, fmt.Errorf("routine entry mapping must have exactly one key")
		}
		var starting any
		if err := item.Content[1].Decode(&starting); err != nil {
			return RoutineRef{}, fmt.Errorf("routine %q: starting value: %v", item.Content[0].Value, err)
		}
		return RoutineRef{Name: item.Content[0].Value, StartingChained: starting}, nil
	default:
		return RoutineRef{}, fmt.Errorf("routine entry must be a name or a single-entry mapping")
	}
}

// RoutinePath resolves a topfile routine name to a file path: periods
// become path separators and the .fdg extension is appended, all under
// baseDir.
func RoutinePath(baseDir, name string) string {
	rel := strings.ReplaceAll(name, ".", string(os.PathSeparator)) + ".fdg"
	return filepath.Join(baseDir, rel)
}

// MatchTarget returns a matcher that tests topfile expressions against
// target with shell-style globbing. Hosts needing richer matching can
// supply their own function to Dispatcher.Match.
func MatchTarget(target string) func(expr string) (bool, error) {
	return func(expr string) (bool, error) {
		return path.Match(expr, target)
	}
}

// Dispatcher resolves which routines a topfile applies to the current
// target and runs each of them once.
type Dispatcher struct {
	Runner  *Runner
	BaseDir string
	Match   func(expr string) (bool, error)
}

// Top loads a topfile, collects the routines whose match expression
// applies, and runs each in document order. Results are keyed by
// (routine path, starting value); the first fatal error aborts the
// whole dispatch.
func (d *Dispatcher) Top(ctx context.Context, topfilePath string) (map[RunKey]any, error) {
	top, err := LoadTopfileFile(topfilePath)
	if err != nil {
		return nil, err
	}
	if d.Match == nil {
		return nil, fmt.Errorf("topfile dispatch requires a target matcher")
	}

	results := make(map[RunKey]any)
	for _, entry := range top.Entries {
		matched, err := d.Match(entry.Match)
		if err != nil {
			return nil, fmt.Errorf("topfile %q: match %q: %w", topfilePath, entry.Match, err)
		}
		if !matched {
			continue
		}
		for _, ref := range entry.Routines {
			routine := RoutinePath(d.BaseDir, ref.Name)
			key, result, err := d.Runner.RunFile(ctx, routine, ref.StartingChained)
			if err != nil {
				return nil, err
			}
			results[key] = result
		}
	}
	return results, nil
}
