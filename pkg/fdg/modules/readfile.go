package modules

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// readfileParams are shared by the structured readfile functions. When
// subkey is set the parsed document is traversed before returning:
// subkey is split on sep (or used whole when sep is empty) and each
// segment indexes into the current value: map key for mappings,
// numeric index for sequences.
type readfileParams struct {
	Path   string `mapstructure:"path"`
	SubKey string `mapstructure:"subkey"`
	Sep    string `mapstructure:"sep"`
}

func (p *readfileParams) resolve(call fdg.Call) error {
	if err := decodeParams(call, []string{"path", "subkey", "sep"}, p); err != nil {
		return err
	}
	if p.Path == "" {
		if chained, ok := chainedString(call); ok {
			p.Path = chained
		}
	}
	if p.Path == "" {
		return missingParam("path")
	}
	return nil
}

// ReadJSON implements readfile.json: parse a JSON file, optionally
// descending to a subkey.
type ReadJSON struct{}

func (m *ReadJSON) ValidateParams(call fdg.Call) error {
	var p readfileParams
	return p.resolve(call)
}

func (m *ReadJSON) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	return readStructured(call, func(data []byte) (any, error) {
		var parsed any
		err := json.Unmarshal(data, &parsed)
		return parsed, err
	})
}

// ReadYAML implements readfile.yaml: parse a YAML file, optionally
// descending to a subkey.
type ReadYAML struct{}

func (m *ReadYAML) ValidateParams(call fdg.Call) error {
	var p readfileParams
	return p.resolve(call)
}

func (m *ReadYAML) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	return readStructured(call, func(data []byte) (any, error) {
		var parsed any
		err := yaml.Unmarshal(data, &parsed)
		return parsed, err
	})
}

func readStructured(call fdg.Call, parse func([]byte) (any, error)) (fdg.Result, error) {
	var p readfileParams
	if err := p.resolve(call); err != nil {
		return fdg.Result{}, err
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fdg.Negative("file_not_found"), nil
		}
		return fdg.Negative(fmt.Sprintf("read failed: %v", err)), nil
	}

	value, err := parse(data)
	if err != nil {
		return fdg.Negative(fmt.Sprintf("parse failed: %v", err)), nil
	}

	if p.SubKey != "" {
		value, err = traverse(value, p.SubKey, p.Sep)
		if err != nil {
			return fdg.Negative(err.Error()), nil
		}
	}
	return fdg.Positive(value), nil
}

// traverse walks a parsed document along subkey segments.
func traverse(value any, subkey, sep string) (any, error) {
	segments := []string{subkey}
	if sep != "" {
		segments = strings.Split(subkey, sep)
	}
	for _, seg := range segments {
		switch cur := value.(type) {
		case map[string]any:
			next, ok := cur[seg]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", seg)
			}
			value = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur) {
				return nil, fmt.Errorf("invalid list index: %s", seg)
			}
			value = cur[idx]
		default:
			return nil, fmt.Errorf("cannot descend into %T with key %s", value, seg)
		}
	}
	return value, nil
}

// ReadString implements readfile.string: return a file's raw contents,
// optionally base64-encoded.
type ReadString struct{}

type readStringParams struct {
	Path      string `mapstructure:"path"`
	EncodeB64 bool   `mapstructure:"encode_b64"`
}

func (m *ReadString) ValidateParams(call fdg.Call) error {
	var p readStringParams
	if err := decodeParams(call, []string{"path", "encode_b64"}, &p); err != nil {
		return err
	}
	if p.Path == "" {
		if _, ok := chainedString(call); !ok {
			return missingParam("path")
		}
	}
	return nil
}

func (m *ReadString) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p readStringParams
	if err := decodeParams(call, []string{"path", "encode_b64"}, &p); err != nil {
		return fdg.Result{}, err
	}
	if p.Path == "" {
		p.Path, _ = chainedString(call)
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fdg.Negative("file_not_found"), nil
		}
		return fdg.Negative(fmt.Sprintf("read failed: %v", err)), nil
	}
	if p.EncodeB64 {
		return fdg.Positive(base64.StdEncoding.EncodeToString(data)), nil
	}
	return fdg.Positive(string(data)), nil
}
