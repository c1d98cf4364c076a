package fdg

import "fmt"

// MalformedRoutineError is returned when a routine document cannot be
// loaded: not valid YAML, not a mapping of mappings, or no "main" block.
type MalformedRoutineError struct {
	Routine string
	Reason  string
}

func (e *MalformedRoutineError) Error() string {
	if e.Routine != "" {
		return fmt.Sprintf("malformed routine %q: %s", e.Routine, e.Reason)
	}
	return fmt.Sprintf("malformed routine: %s", e.Reason)
}

// MalformedTopfileError is returned when a topfile cannot be loaded or
// lacks the recognized top-level key.
type MalformedTopfileError struct {
	Topfile string
	Reason  string
}

func (e *MalformedTopfileError) Error() string {
	return fmt.Sprintf("malformed topfile %q: %s", e.Topfile, e.Reason)
}

// UnknownBlockError is returned when evaluation reaches a block id that
// does not exist in the document. Referrer is the block whose chaining
// keyword named the missing id, empty for the entry block.
type UnknownBlockError struct {
	BlockID  string
	Referrer string
}

func (e *UnknownBlockError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("block %q: chain target %q not found in routine", e.Referrer, e.BlockID)
	}
	return fmt.Sprintf("block %q not found in routine", e.BlockID)
}

// UnknownCapabilityError is returned when a block names a module
// function that is not present in the registry.
type UnknownCapabilityError struct {
	BlockID string
	Module  string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("block %q: no module registered for %q", e.BlockID, e.Module)
}

// NotIterableError is returned when an xpipe keyword is selected but the
// block's value does not support ordered iteration.
type NotIterableError struct {
	BlockID string
	Value   any
}

func (e *NotIterableError) Error() string {
	return fmt.Sprintf("block %q: xpipe requires an iterable value, got %T", e.BlockID, e.Value)
}

// RecursionLimitError is returned when chained evaluation exceeds the
// configured depth ceiling, which usually means the document chains in a
// cycle.
type RecursionLimitError struct {
	BlockID string
	Limit   int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("block %q: chain depth exceeded limit (%d); routine likely contains a cycle", e.BlockID, e.Limit)
}

// ValidationError wraps a module's parameter validation failure with the
// block that supplied the parameters.
type ValidationError struct {
	BlockID string
	Module  string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("block %q: %s: invalid parameters: %v", e.BlockID, e.Module, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
