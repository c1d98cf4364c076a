package modules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// Sysctl implements sysctl.get: read a kernel parameter from /proc/sys.
// The chained value fills the parameter name when none is declared, so
// a list of names can be fanned out with xpipe.
type Sysctl struct {
	// ProcRoot overrides /proc/sys, for tests.
	ProcRoot string
}

type sysctlParams struct {
	Name string `mapstructure:"name"`
}

func (m *Sysctl) ValidateParams(call fdg.Call) error {
	var p sysctlParams
	if err := decodeParams(call, []string{"name"}, &p); err != nil {
		return err
	}
	if p.Name == "" {
		if _, ok := chainedString(call); !ok {
			return missingParam("name")
		}
	}
	return nil
}

func (m *Sysctl) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p sysctlParams
	if err := decodeParams(call, []string{"name"}, &p); err != nil {
		return fdg.Result{}, err
	}
	// Chained value wins: piping a parameter name into the block is the
	// primary use of this module.
	if chained, ok := chainedString(call); ok {
		p.Name = chained
	}

	root := m.ProcRoot
	if root == "" {
		root = "/proc/sys"
	}
	path := filepath.Join(root, strings.ReplaceAll(p.Name, ".", string(os.PathSeparator)))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fdg.Negative(fmt.Sprintf("could not find kernel parameter %s", p.Name)), nil
		}
		return fdg.Negative(fmt.Sprintf("could not read kernel parameter %s: %v", p.Name, err)), nil
	}
	return fdg.Positive(map[string]any{p.Name: strings.TrimSpace(string(data))}), nil
}
