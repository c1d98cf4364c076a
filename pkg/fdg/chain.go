package fdg

// ChainMode selects how a value propagates to the next block.
type ChainMode int

const (
	// ModePipe forwards the whole value, unmodified.
	ModePipe ChainMode = iota
	// ModeXPipe iterates the value and evaluates the target once per
	// element, collecting the sub-results into a list.
	ModeXPipe
)

func (m ChainMode) String() string {
	if m == ModeXPipe {
		return "xpipe"
	}
	return "pipe"
}

// ChainAction is the single next step selected for a block invocation.
type ChainAction struct {
	Mode   ChainMode
	Target string
}

// directive is one chaining keyword declared on a block, with its
// eligibility condition (nil means unconditional).
type directive struct {
	keyword string
	target  string
	mode    ChainMode
	when    *bool
}

var (
	condTrue  = true
	condFalse = false
)

// directives lists the block's declared chaining keywords in precedence
// order, highest first. The order is a hard contract: conditional
// keywords outrank unconditional ones, xpipe variants outrank their pipe
// counterparts.
func (b *Block) directives() []directive {
	all := []directive{
		{keyword: "xpipe_on_true", target: b.XPipeOnTrue, mode: ModeXPipe, when: &condTrue},
		{keyword: "xpipe_on_false", target: b.XPipeOnFalse, mode: ModeXPipe, when: &condFalse},
		{keyword: "pipe_on_true", target: b.PipeOnTrue, mode: ModePipe, when: &condTrue},
		{keyword: "pipe_on_false", target: b.PipeOnFalse, mode: ModePipe, when: &condFalse},
		{keyword: "xpipe", target: b.XPipe, mode: ModeXPipe},
		{keyword: "pipe", target: b.Pipe, mode: ModePipe},
	}
	declared := all[:0]
	for _, d := range all {
		if d.target != "" {
			declared = append(declared, d)
		}
	}
	return declared
}

// ChainEdge describes one declared chaining keyword on a block.
type ChainEdge struct {
	Keyword string
	Target  string
	Mode    ChainMode
}

// Chains lists the block's declared chaining keywords in precedence
// order, highest first.
func (b *Block) Chains() []ChainEdge {
	ds := b.directives()
	edges := make([]ChainEdge, len(ds))
	for i, d := range ds {
		edges[i] = ChainEdge{Keyword: d.keyword, Target: d.target, Mode: d.mode}
	}
	return edges
}

// ResolveChain selects at most one next action for a block given the
// status of its invocation. The first declared keyword whose condition
// matches the status wins; every other keyword is ignored for this
// invocation. ok is false when the block is terminal.
func ResolveChain(b *Block, status any) (action ChainAction, ok bool) {
	truthy := Truthy(status)
	for _, d := range b.directives() {
		if d.when != nil && *d.when != truthy {
			continue
		}
		return ChainAction{Mode: d.mode, Target: d.target}, true
	}
	return ChainAction{}, false
}
