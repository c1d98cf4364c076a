package modules

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// Grep implements grep.grep: match a pattern against a file's lines.
// The pattern is a Go regular expression applied in-process; the module
// never shells out.
//
// Supported flags: -i (case-insensitive), -v (invert match), -F (treat
// the pattern as a fixed string).
type Grep struct{}

type grepParams struct {
	File    string `mapstructure:"file"`
	Pattern string `mapstructure:"pattern"`
	Flags   any    `mapstructure:"flags"`
}

func (m *Grep) ValidateParams(call fdg.Call) error {
	var p grepParams
	if err := decodeParams(call, []string{"file", "pattern", "flags"}, &p); err != nil {
		return err
	}
	if p.File == "" {
		if _, ok := chainedString(call); !ok {
			return missingParam("file")
		}
	}
	if p.Pattern == "" {
		return missingParam("pattern")
	}
	return nil
}

func (m *Grep) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p grepParams
	if err := decodeParams(call, []string{"file", "pattern", "flags"}, &p); err != nil {
		return fdg.Result{}, err
	}
	if p.File == "" {
		p.File, _ = chainedString(call)
	}

	var insensitive, invert, fixed bool
	for _, flag := range stringSlice(p.Flags) {
		switch flag {
		case "-i":
			insensitive = true
		case "-v":
			invert = true
		case "-F":
			fixed = true
		default:
			return fdg.Result{}, fmt.Errorf("unsupported grep flag %q", flag)
		}
	}

	pattern := p.Pattern
	if fixed {
		pattern = regexp.QuoteMeta(pattern)
	}
	if insensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fdg.Result{}, fmt.Errorf("invalid pattern %q: %w", p.Pattern, err)
	}

	f, err := os.Open(p.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fdg.Negative("file_not_found"), nil
		}
		return fdg.Negative(fmt.Sprintf("open failed: %v", err)), nil
	}
	defer f.Close()

	var matched []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if re.MatchString(line) != invert {
			matched = append(matched, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fdg.Negative(fmt.Sprintf("read failed: %v", err)), nil
	}

	if len(matched) == 0 {
		return fdg.Negative("pattern_not_found"), nil
	}
	return fdg.Positive(strings.Join(matched, "\n")), nil
}
