package modules

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// decodeParams merges positional args (mapped by declared name order)
// with kwargs and decodes the result into a params struct. Kwargs win
// over positional args on conflict.
func decodeParams(call fdg.Call, names []string, out any) error {
	merged := make(map[string]any, len(call.Kwargs)+len(call.Args))
	for i, v := range call.Args {
		if i < len(names) {
			merged[names[i]] = v
		}
	}
	for k, v := range call.Kwargs {
		merged[k] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(merged); err != nil {
		return fmt.Errorf("decode parameters: %w", err)
	}
	return nil
}

// chainedString returns the chained value if it is a non-empty string.
// Modules use it to accept their primary input from upstream.
func chainedString(call fdg.Call) (string, bool) {
	s, ok := call.Chained.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// missingParam is the shared error shape for mandatory parameters,
// surfaced with the block id by the executor's ValidationError wrapper.
func missingParam(name string) error {
	return fmt.Errorf("mandatory parameter %q not found", name)
}

// stringSlice normalizes a scalar-or-sequence parameter to []string.
func stringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}
