package gotreesitter

import (
	"errors"

	"github.com/google/uuid"
)

// ErrParseFailed is returned by Parse when every version of the stack died
// without any reaching ParseActionAccept (spec §7: "on total failure...
// surface it to the caller rather than returning a partial/nil tree
// silently").
var ErrParseFailed = errors.New("gotreesitter: parse failed: no version reached accept")

// Parser drives one Language's parse table and lex tables over input,
// optionally reusing a previous tree (spec §6: init/destroy/parse). A Parser
// runs one Parse at a time: each call builds its own Stack, Engine and
// Lexer, but an attached Debugger and the previous tree's nodes are updated
// during the parse. The instance id exists so that log lines from several
// parser instances in one process can be told apart.
type Parser struct {
	language *Language
	id       uuid.UUID
	debugger *Debugger
}

// NewParser creates a Parser for the given language (spec §6 init).
func NewParser(lang *Language) *Parser {
	return &Parser{language: lang, id: uuid.New()}
}

// ID returns this parser instance's identifier.
func (p *Parser) ID() uuid.UUID { return p.id }

// SetDebugger attaches a Debugger that receives a log entry per driver
// iteration and, if configured, periodic stack-graph snapshots (spec §6
// set_debugger; SPEC_FULL.md AMBIENT STACK). Pass nil to detach.
func (p *Parser) SetDebugger(d *Debugger) { p.debugger = d }

// Debugger returns the currently attached Debugger, or nil.
func (p *Parser) Debugger() *Debugger { return p.debugger }

// Destroy releases resources held across calls to Parse. The current
// implementation holds none beyond what each Parse call owns and releases
// itself, but the method exists to match spec §6's explicit init/destroy
// pairing and give future per-parser caches (e.g. a warmed arena) a place to
// live.
func (p *Parser) Destroy() {}

// driverState is the per-version bookkeeping the outer loop threads through
// consume_lookahead calls (spec §4.6/§4.7): a version's reusable-node cursor
// position and its error-repair counters. Index i tracks stack version i;
// the slice grows whenever DuplicateVersion creates a new version and is
// compacted in lockstep with Stack.Condense.
type driverState struct {
	cursors               []*ReusableNodeCursor
	errorDepths           []int
	lastReductionVersions []int
}

func newDriverState(previous *Tree) *driverState {
	return &driverState{
		cursors:               []*ReusableNodeCursor{NewReusableNodeCursor(previous)},
		errorDepths:           []int{0},
		lastReductionVersions: []int{0},
	}
}

// grow extends every per-version slice up to n entries, copying version
// from's cursor and error depth (version 0's if from is out of range) as the
// template for any newly-visible version: a version only
// becomes visible to the driver once the engine has already pushed a frame
// for it (from DuplicateVersion), at which point it inherits whatever
// position its originating version's cursor had reached.
func (d *driverState) grow(n int, from int) {
	for len(d.cursors) < n {
		v := len(d.cursors)
		src := from
		if src >= len(d.cursors) {
			src = 0
		}
		snap := d.cursors[src].Snapshot()
		c := &ReusableNodeCursor{}
		c.Restore(snap)
		d.cursors = append(d.cursors, c)
		d.errorDepths = append(d.errorDepths, d.errorDepths[src])
		d.lastReductionVersions = append(d.lastReductionVersions, v)
	}
}

// condense reindexes every per-version slice according to the Stack's
// old->new version mapping, dropping entries for versions that died (spec
// §4.4 condense, called at the end of every outer-loop iteration).
func (d *driverState) condense(mapping map[int]int) {
	cursors := make([]*ReusableNodeCursor, len(mapping))
	errorDepths := make([]int, len(mapping))
	lastReductionVersions := make([]int, len(mapping))
	for old, nu := range mapping {
		if old < len(d.cursors) {
			cursors[nu] = d.cursors[old]
			errorDepths[nu] = d.errorDepths[old]
			lastReductionVersions[nu] = d.lastReductionVersions[old]
		} else {
			cursors[nu] = &ReusableNodeCursor{}
		}
	}
	d.cursors, d.errorDepths, d.lastReductionVersions = cursors, errorDepths, lastReductionVersions
}

// selectLeftmostBehind picks the lowest-indexed live version whose top
// position is not past maxPosition (a version exactly at maxPosition
// qualifies), the scheduling rule spec §4.6 calls "leftmost behind":
// processing versions in index order, and never one that is ahead, is what
// keeps every
// version's view of the input advancing together rather than one version
// racing arbitrarily far ahead of its siblings.
func selectLeftmostBehind(stack *Stack, maxPosition Length) int {
	for i := 0; i < stack.VersionCount(); i++ {
		if stack.Alive(i) && stack.TopPosition(i).Chars <= maxPosition.Chars {
			return i
		}
	}
	return -1
}

// Parse produces a syntax tree from source (spec §6 parse). previous, if
// non-nil, is the prior parse of an edited version of this same source
// (after one or more calls to previous.Edit); unchanged subtrees are offered
// for reuse via a ReusableNodeCursor (spec §4.5). Pass nil for previous to
// force a full parse.
func (p *Parser) Parse(source []byte, previous *Tree) (*Tree, error) {
	stack := NewStack(p.language.InitialState, previous != nil)
	defer stack.Release()

	engine := NewEngine(p.language, stack)
	lexer := NewLexer(p.language.LexStates, source)
	state := newDriverState(previous)

	var scannerPayload any
	if p.language.ExternalScanner != nil {
		scannerPayload = p.language.ExternalScanner.Create()
		defer p.language.ExternalScanner.Destroy(scannerPayload)
	}

	var maxPosition Length
	iteration := 0

	for stack.VersionCount() > 0 {
		v := selectLeftmostBehind(stack, maxPosition)
		if v < 0 {
			break
		}

		topState := stack.TopState(v)
		topPos := stack.TopPosition(v)
		cursor := state.cursors[v]

		la, advanced := p.nextLookahead(engine, lexer, cursor, topState, topPos, v, scannerPayload)
		if advanced.Chars > maxPosition.Chars {
			maxPosition = advanced
		}

		preCount := stack.VersionCount()
		if la.sym == SymbolEnd && topState == StateIDError {
			// spec §4.7.3/§4.7.5: EOF reached while recovering never arrives
			// as a normal lookahead to repair against -- synthesize the
			// empty post-recovery frame directly instead of looping forever
			// waiting for a token that will never come.
			engine.RecoverEOF(v)
		} else {
			engine.ConsumeLookahead(v, la, &state.errorDepths[v], &state.lastReductionVersions[v])
		}

		if stack.VersionCount() > preCount {
			state.grow(stack.VersionCount(), v)
		}

		if p.debugger != nil {
			p.debugger.logIteration(p.id, iteration, v, stack.VersionCount())
			if p.debugger.snapshots {
				p.debugger.SnapshotStack(stack)
			}
		}
		iteration++

		mapping := stack.Condense()
		state.condense(mapping)
	}

	if engine.Accepted == nil {
		return nil, ErrParseFailed
	}
	root := engine.Accepted
	root.contextParent = nil
	return NewTree(root, source, p.language), nil
}

// nextLookahead implements the body of spec §4.5/§4.6's per-version step:
// try the reusable-node cursor first, falling back to a fresh lex (and, if
// the cursor bottomed out at a changed leaf sitting at the stack top, first
// breaking that leaf down for finer-grained reduction) when nothing in the
// previous tree can be reused here. It returns the lookahead tree/symbol
// along with the input position just past it, which the caller folds into
// max_position.
func (p *Parser) nextLookahead(engine *Engine, lexer *Lexer, cursor *ReusableNodeCursor, state StateID, pos Length, v int, scannerPayload any) (lookaheadTree, Length) {
	if !cursor.Done() {
		look := GetLookahead(p.language, state, pos, cursor)
		if look.Reused {
			return lookaheadTree{tree: look.Node, sym: look.Node.Symbol(), reused: true}, pos.Add(look.Node.TotalSize())
		}
		if look.BreakdownStackTop {
			engine.BreakdownTopOfStack(v)
		}
	}

	errorMode := state == StateIDError
	lexState := p.language.LexStateFor(state)
	if errorMode {
		lexState = 0
	}

	var zeroPoint Point
	lexer.Reset(pos, zeroPoint)
	lexer.Start(lexState, errorMode)

	if p.language.ExternalScanner != nil {
		if tok, ok := p.runExternalScanner(scannerPayload, lexer.source, pos, state); ok {
			meta := p.language.SymbolMeta(tok.Symbol)
			leaf := NewLeafNode(tok, meta.Named)
			return lookaheadTree{tree: leaf, sym: leaf.Symbol()}, pos.Add(leaf.TotalSize())
		}
	}

	tok := lexer.Finish()

	if tok.IsError {
		leaf := NewErrorLeafNode(tok)
		return lookaheadTree{tree: leaf, sym: leaf.Symbol()}, pos.Add(leaf.TotalSize())
	}
	if tok.Symbol == SymbolEnd {
		leaf := NewLeafNode(tok, false)
		return lookaheadTree{tree: leaf, sym: SymbolEnd}, pos.Add(leaf.TotalSize())
	}

	meta := p.language.SymbolMeta(tok.Symbol)
	var leaf *Node
	if meta.Extra {
		leaf = NewExtraLeafNode(tok, meta.Named)
	} else {
		leaf = NewLeafNode(tok, meta.Named)
	}
	return lookaheadTree{tree: leaf, sym: leaf.Symbol()}, pos.Add(leaf.TotalSize())
}

// runExternalScanner gives the language's external scanner first refusal on
// the current position (spec §4.2: "an external scanner, when present, is
// consulted ahead of the DFA lexer"), positioning a fresh ExternalLexer at
// pos and asking it to scan against every terminal valid in the current
// state.
func (p *Parser) runExternalScanner(payload any, source []byte, pos Length, state StateID) (Token, bool) {
	lex := newExternalLexer(source, int(pos.Bytes), 0, 0)
	valid := p.language.ValidSymbolsAt(state)
	if !p.language.ExternalScanner.Scan(payload, lex, valid) {
		return Token{}, false
	}
	return lex.token()
}
