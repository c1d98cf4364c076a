package modules

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// The util namespace is pure chained-value plumbing: no module here
// touches the host, they only reshape what upstream blocks produced.

// Nop implements util.nop: forward the chained value untouched with a
// positive status. Useful as the target of a *_on_true keyword to
// filter out falsy branches.
type Nop struct{}

func (m *Nop) ValidateParams(fdg.Call) error { return nil }

func (m *Nop) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	return fdg.Positive(call.Chained), nil
}

// Join implements util.join: join a chained list of strings with sep.
type Join struct{}

type joinParams struct {
	Words         []any  `mapstructure:"words"`
	Sep           string `mapstructure:"sep"`
	ExtendChained *bool  `mapstructure:"extend_chained"`
}

func (m *Join) ValidateParams(fdg.Call) error { return nil }

func (m *Join) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p joinParams
	if err := decodeParams(call, []string{"words", "sep"}, &p); err != nil {
		return fdg.Result{}, err
	}
	seq, ok := anySlice(call.Chained)
	if !ok {
		return fdg.Negative("invalid_format"), nil
	}
	if extendEnabled(p.ExtendChained) && len(p.Words) > 0 {
		seq = append(append([]any{}, seq...), p.Words...)
	}

	parts := make([]string, len(seq))
	for i, item := range seq {
		s, ok := item.(string)
		if !ok {
			return fdg.Negative("invalid_format"), nil
		}
		parts[i] = s
	}
	joined := strings.Join(parts, p.Sep)
	if joined == "" {
		return fdg.Negative("unknown_error"), nil
	}
	return fdg.Positive(joined), nil
}

// Split implements util.split: split a chained string on a separator,
// optionally treating it as a regular expression. An empty sep splits
// on runs of whitespace.
type Split struct{}

type splitParams struct {
	Phrase string `mapstructure:"phrase"`
	Sep    string `mapstructure:"sep"`
	Regex  bool   `mapstructure:"regex"`
}

func (m *Split) ValidateParams(fdg.Call) error { return nil }

func (m *Split) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p splitParams
	if err := decodeParams(call, []string{"phrase", "sep", "regex"}, &p); err != nil {
		return fdg.Result{}, err
	}
	text, ok := chainedString(call)
	if !ok {
		text = p.Phrase
	}
	if text == "" {
		return fdg.Negative("invalid_format"), nil
	}

	var parts []string
	switch {
	case p.Regex:
		re, err := regexp.Compile(p.Sep)
		if err != nil {
			return fdg.Result{}, fmt.Errorf("invalid separator pattern %q: %w", p.Sep, err)
		}
		parts = re.Split(text, -1)
	case p.Sep == "":
		parts = strings.Fields(text)
	default:
		parts = strings.Split(text, p.Sep)
	}

	out := make([]any, len(parts))
	for i, s := range parts {
		out[i] = s
	}
	if len(out) == 0 {
		return fdg.Negative("unknown_error"), nil
	}
	return fdg.Positive(out), nil
}

// GetIndex implements util.get_index: return one element of a chained
// list. Negative indexes count from the end.
type GetIndex struct{}

type getIndexParams struct {
	Index         int   `mapstructure:"index"`
	StartingList  []any `mapstructure:"starting_list"`
	ExtendChained *bool `mapstructure:"extend_chained"`
}

func (m *GetIndex) ValidateParams(fdg.Call) error { return nil }

func (m *GetIndex) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p getIndexParams
	if err := decodeParams(call, []string{"index"}, &p); err != nil {
		return fdg.Result{}, err
	}
	seq, ok := anySlice(call.Chained)
	if !ok {
		return fdg.Negative("invalid_format"), nil
	}
	if extendEnabled(p.ExtendChained) && len(p.StartingList) > 0 {
		seq = append(append([]any{}, seq...), p.StartingList...)
	}

	idx := p.Index
	if idx < 0 {
		idx += len(seq)
	}
	if idx < 0 || idx >= len(seq) {
		return fdg.Negative("invalid_format"), nil
	}
	value := seq[idx]
	if !fdg.Truthy(value) {
		return fdg.Negative("invalid_result"), nil
	}
	return fdg.Positive(value), nil
}

// GetKey implements util.get_key: return one value of a chained
// mapping by key.
type GetKey struct{}

type getKeyParams struct {
	Key           string         `mapstructure:"key"`
	StartingDict  map[string]any `mapstructure:"starting_dict"`
	UpdateChained *bool          `mapstructure:"update_chained"`
}

func (m *GetKey) ValidateParams(call fdg.Call) error {
	var p getKeyParams
	if err := decodeParams(call, []string{"key"}, &p); err != nil {
		return err
	}
	if p.Key == "" {
		return missingParam("key")
	}
	return nil
}

func (m *GetKey) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p getKeyParams
	if err := decodeParams(call, []string{"key"}, &p); err != nil {
		return fdg.Result{}, err
	}
	dict, ok := anyMap(call.Chained)
	if !ok {
		return fdg.Negative("invalid_format"), nil
	}
	if extendEnabled(p.UpdateChained) && len(p.StartingDict) > 0 {
		merged := make(map[string]any, len(dict)+len(p.StartingDict))
		for k, v := range dict {
			merged[k] = v
		}
		for k, v := range p.StartingDict {
			merged[k] = v
		}
		dict = merged
	}

	value, ok := dict[p.Key]
	if !ok {
		return fdg.Negative("key_not_found"), nil
	}
	if !fdg.Truthy(value) {
		return fdg.Negative("unknown_error"), nil
	}
	return fdg.Positive(value), nil
}

// DictToList implements util.dict_to_list: convert a chained mapping to
// a list of [key, value] pairs, sorted by key for determinism.
type DictToList struct{}

type dictToListParams struct {
	StartingDict  map[string]any `mapstructure:"starting_dict"`
	UpdateChained *bool          `mapstructure:"update_chained"`
}

func (m *DictToList) ValidateParams(fdg.Call) error { return nil }

func (m *DictToList) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p dictToListParams
	if err := decodeParams(call, nil, &p); err != nil {
		return fdg.Result{}, err
	}
	dict, ok := anyMap(call.Chained)
	if !ok {
		return fdg.Negative("invalid_format"), nil
	}
	if extendEnabled(p.UpdateChained) && len(p.StartingDict) > 0 {
		merged := make(map[string]any, len(dict)+len(p.StartingDict))
		for k, v := range dict {
			merged[k] = v
		}
		for k, v := range p.StartingDict {
			merged[k] = v
		}
		dict = merged
	}

	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]any, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, []any{k, dict[k]})
	}
	if len(pairs) == 0 {
		return fdg.Negative("unknown_error"), nil
	}
	return fdg.Positive(pairs), nil
}

// FilterSeq implements util.filter_seq: keep the elements of a chained
// list that satisfy every rule in filter_rules, a mapping of comparison
// type (gt, ge, lt, le, eq, ne) to the value compared against.
type FilterSeq struct{}

type filterSeqParams struct {
	StartingSeq   []any          `mapstructure:"starting_seq"`
	ExtendChained *bool          `mapstructure:"extend_chained"`
	FilterRules   map[string]any `mapstructure:"filter_rules"`
}

func (m *FilterSeq) ValidateParams(call fdg.Call) error {
	var p filterSeqParams
	if err := decodeParams(call, nil, &p); err != nil {
		return err
	}
	if len(p.FilterRules) == 0 {
		return missingParam("filter_rules")
	}
	return nil
}

func (m *FilterSeq) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p filterSeqParams
	if err := decodeParams(call, nil, &p); err != nil {
		return fdg.Result{}, err
	}
	seq, ok := anySlice(call.Chained)
	if !ok {
		return fdg.Negative("invalid_format"), nil
	}
	if extendEnabled(p.ExtendChained) && len(p.StartingSeq) > 0 {
		seq = append(append([]any{}, seq...), p.StartingSeq...)
	}

	// Rules are conjunctive, so application order does not matter.
	for comp, threshold := range p.FilterRules {
		kept := seq[:0:0]
		for _, item := range seq {
			match, err := compare(comp, item, threshold)
			if err != nil {
				return fdg.Negative("invalid_format"), nil
			}
			if match {
				kept = append(kept, item)
			}
		}
		seq = kept
	}
	return fdg.Positive(seq), nil
}

// Sort implements util.sort: sort a chained list, numerically when every
// element is a number (unless lexico forces string order), descending
// when desc is set.
type Sort struct{}

type sortParams struct {
	Seq    []any `mapstructure:"seq"`
	Desc   bool  `mapstructure:"desc"`
	Lexico bool  `mapstructure:"lexico"`
}

func (m *Sort) ValidateParams(fdg.Call) error { return nil }

func (m *Sort) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p sortParams
	if err := decodeParams(call, []string{"seq", "desc", "lexico"}, &p); err != nil {
		return fdg.Result{}, err
	}
	seq, ok := anySlice(call.Chained)
	if !ok {
		seq = p.Seq
	}
	if seq == nil {
		return fdg.Negative("invalid_format"), nil
	}

	sorted := append([]any{}, seq...)
	numeric := !p.Lexico && allNumeric(sorted)
	less := func(i, j int) bool {
		if numeric {
			a, _ := toFloat(sorted[i])
			b, _ := toFloat(sorted[j])
			return a < b
		}
		return fmt.Sprintf("%v", sorted[i]) < fmt.Sprintf("%v", sorted[j])
	}
	if p.Desc {
		sort.SliceStable(sorted, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(sorted, less)
	}
	return fdg.Positive(sorted), nil
}

// EncodeBase64 implements util.encode_base64: base64-encode a chained
// string.
type EncodeBase64 struct{}

type encodeBase64Params struct {
	StartingString string `mapstructure:"starting_string"`
}

func (m *EncodeBase64) ValidateParams(fdg.Call) error { return nil }

func (m *EncodeBase64) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p encodeBase64Params
	if err := decodeParams(call, []string{"starting_string"}, &p); err != nil {
		return fdg.Result{}, err
	}
	text, ok := chainedString(call)
	if !ok {
		text = p.StartingString
	}
	if text == "" {
		return fdg.Negative("invalid_format"), nil
	}
	return fdg.Positive(base64.StdEncoding.EncodeToString([]byte(text))), nil
}

// ─── shared value helpers ────────────────────────────────────────────────────

func anySlice(v any) ([]any, bool) {
	seq, ok := v.([]any)
	return seq, ok
}

func anyMap(v any) (map[string]any, bool) {
	dict, ok := v.(map[string]any)
	return dict, ok
}

// extendEnabled applies the extend_chained/update_chained default of
// true when the parameter is absent.
func extendEnabled(flag *bool) bool {
	return flag == nil || *flag
}

func allNumeric(seq []any) bool {
	for _, item := range seq {
		if _, ok := toFloat(item); !ok {
			return false
		}
	}
	return len(seq) > 0
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// compare applies one filter rule. Numbers compare numerically, strings
// lexicographically; mixing the two is an error.
func compare(comp string, a, b any) (bool, error) {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return compareOrdered(comp, af, bf)
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return compareOrdered(comp, as, bs)
	}
	return false, fmt.Errorf("cannot compare %T with %T", a, b)
}

func compareOrdered[T float64 | string](comp string, a, b T) (bool, error) {
	switch comp {
	case "gt":
		return a > b, nil
	case "ge":
		return a >= b, nil
	case "lt":
		return a < b, nil
	case "le":
		return a <= b, nil
	case "eq":
		return a == b, nil
	case "ne":
		return a != b, nil
	default:
		return false, fmt.Errorf("unknown comparison %q: want one of gt, ge, lt, le, eq, ne", comp)
	}
}
