package fdg

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxDepth bounds chain recursion when the caller does not
// configure a limit. A cyclic document would otherwise grow the stack
// without bound.
const DefaultMaxDepth = 500

// Executor recursively evaluates routine blocks: invoke the block's
// module, resolve at most one chaining keyword, recurse, bubble the
// value back up. Evaluation is single-threaded and fully synchronous;
// each recursive call carries its own chained value, so re-entering a
// block under xpipe shares no state between iterations.
type Executor struct {
	Modules   *Registry
	Returners *ReturnerRegistry
	MaxDepth  int
	Logger    *slog.Logger
}

// Evaluate runs blockID and every block it chains into, returning the
// bubbled value.
func (e *Executor) Evaluate(ctx context.Context, doc *Document, blockID string, chained any) (any, error) {
	if e.Modules == nil {
		return nil, fmt.Errorf("executor has no module registry")
	}
	return e.evaluate(ctx, doc, blockID, "", chained, 0)
}

func (e *Executor) evaluate(ctx context.Context, doc *Document, blockID, referrer string, chained any, depth int) (any, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("routine cancelled at block %q: %w", blockID, ctx.Err())
	default:
	}

	if limit := e.maxDepth(); depth > limit {
		return nil, &RecursionLimitError{BlockID: blockID, Limit: limit}
	}

	block, ok := doc.Blocks[blockID]
	if !ok {
		return nil, &UnknownBlockError{BlockID: blockID, Referrer: referrer}
	}

	mod, ok := e.Modules.Get(block.Module)
	if !ok {
		return nil, &UnknownCapabilityError{BlockID: blockID, Module: block.Module}
	}

	call := Call{BlockID: blockID, Args: block.Args, Kwargs: block.Kwargs, Chained: chained}
	if err := mod.ValidateParams(call); err != nil {
		return nil, &ValidationError{BlockID: blockID, Module: block.Module, Err: err}
	}

	e.logger().Debug("executing block", "block", blockID, "module", block.Module)

	res, err := mod.Invoke(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("block %q: %s: %w", blockID, block.Module, err)
	}

	action, chainedNext := ResolveChain(block, res.Status)

	var out any
	switch {
	case !chainedNext:
		// Terminal: no keyword eligible for this status.
		out = res.Value

	case action.Mode == ModePipe:
		out, err = e.evaluate(ctx, doc, action.Target, blockID, res.Value, depth+1)
		if err != nil {
			return nil, err
		}

	case action.Mode == ModeXPipe:
		items, iterable := iterate(res.Value)
		if !iterable {
			return nil, &NotIterableError{BlockID: blockID, Value: res.Value}
		}
		collected := make([]any, 0, len(items))
		for _, item := range items {
			sub, subErr := e.evaluate(ctx, doc, action.Target, blockID, item, depth+1)
			if subErr != nil {
				return nil, subErr
			}
			collected = append(collected, sub)
		}
		out = collected
	}

	if block.Return != "" {
		e.record(ctx, doc.Name, block, out)
	}
	return out, nil
}

// record hands a block's fully-resolved value to its returner. Failures
// are logged, never fatal: the return keyword is a side output and must
// not alter what the run produces.
func (e *Executor) record(ctx context.Context, routine string, block *Block, value any) {
	ret, ok := e.Returners.Get(block.Return)
	if !ok {
		e.logger().Warn("returner not registered", "block", block.ID, "returner", block.Return)
		return
	}
	entry := ReturnEntry{Routine: routine, BlockID: block.ID, Value: value}
	if err := ret.Record(ctx, entry); err != nil {
		e.logger().Warn("returner failed", "block", block.ID, "returner", block.Return, "err", err)
	}
}

func (e *Executor) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
