package gotreesitter

import "testing"

type fakeTable struct {
	lastAction map[tableKey]ParseAction
	lexState   map[StateID]uint16
	meta       map[Symbol]SymbolMetadata
}

func newFakeTable() *fakeTable {
	return &fakeTable{
		lastAction: map[tableKey]ParseAction{},
		lexState:   map[StateID]uint16{},
		meta:       map[Symbol]SymbolMetadata{},
	}
}

func (f *fakeTable) Actions(state StateID, sym Symbol) []ParseAction {
	if a, ok := f.lastAction[tableKey{state, sym}]; ok {
		return []ParseAction{a}
	}
	return nil
}
func (f *fakeTable) LastAction(state StateID, sym Symbol) (ParseAction, bool) {
	a, ok := f.lastAction[tableKey{state, sym}]
	return a, ok
}
func (f *fakeTable) HasAction(state StateID, sym Symbol) bool {
	_, ok := f.lastAction[tableKey{state, sym}]
	return ok
}
func (f *fakeTable) LexStateFor(state StateID) uint16 { return f.lexState[state] }
func (f *fakeTable) SymbolMeta(sym Symbol) SymbolMetadata { return f.meta[sym] }
func (f *fakeTable) AllowsExtra(state StateID, sym Symbol) bool {
	a, ok := f.lastAction[tableKey{state, sym}]
	return ok && a.Extra
}
func (f *fakeTable) TerminalCount() uint32 { return 256 }

func chainLeaves(symbols ...Symbol) *Node {
	children := make([]*Node, len(symbols))
	for i, sym := range symbols {
		children[i] = NewLeafNode(Token{Symbol: sym, Size: Length{Chars: 1, Bytes: 1}}, true)
	}
	return MakeNode(99, true, len(children), children, nil, 0)
}

func TestGetLookaheadReusesUnchangedLeaf(t *testing.T) {
	root := chainLeaves(1, 2, 3)
	tr := NewTree(root, []byte("abc"), nil)
	cursor := NewReusableNodeCursor(tr)

	table := newFakeTable()
	table.lastAction[tableKey{0, 1}] = ParseAction{Type: ParseActionShift, State: 1}

	result := GetLookahead(table, 0, Length{}, cursor)
	if !result.Reused {
		t.Fatalf("expected a reused node at position 0")
	}
	if result.Node.Symbol() != 1 {
		t.Fatalf("reused symbol = %d, want 1", result.Node.Symbol())
	}
	if cursor.charIndex != 1 {
		t.Fatalf("cursor.charIndex after reuse = %d, want 1 (advanced past the reused leaf)", cursor.charIndex)
	}
}

func TestGetLookaheadReportsNothingForUnreusableLeaf(t *testing.T) {
	root := chainLeaves(1, 2)
	tr := NewTree(root, []byte("ab"), nil)
	cursor := NewReusableNodeCursor(tr)

	table := newFakeTable()
	// No action registered for (0,1): can_reuse fails on the first leaf, so
	// GetLookahead should report nothing reusable at this position rather
	// than silently skipping ahead to the second leaf.
	result := GetLookahead(table, 0, Length{}, cursor)
	if result.Reused {
		t.Fatalf("should not reuse a leaf with no action at the current state")
	}
}

func TestGetLookaheadRefusesChangedNode(t *testing.T) {
	root := chainLeaves(1, 2)
	root.children[0].hasChanges = true
	tr := NewTree(root, []byte("ab"), nil)
	cursor := NewReusableNodeCursor(tr)

	table := newFakeTable()
	table.lastAction[tableKey{0, 1}] = ParseAction{Type: ParseActionShift, State: 1}

	result := GetLookahead(table, 0, Length{}, cursor)
	if result.Reused {
		t.Fatalf("a changed leaf must never be reused")
	}
	if !result.BreakdownStackTop {
		t.Fatalf("a changed leaf at the cursor should request stack-top breakdown")
	}
}

func TestCanReuseRejectsErrorNodes(t *testing.T) {
	table := newFakeTable()
	table.lastAction[tableKey{0, SymbolError}] = ParseAction{Type: ParseActionShift, State: 1}
	errNode := NewErrorLeafNode(Token{Symbol: SymbolError, Size: Length{Chars: 1, Bytes: 1}})
	if canReuse(table, 0, errNode) {
		t.Fatalf("canReuse must reject ERROR-symbol nodes unconditionally")
	}
}

func TestCanReuseRejectsFragileLexStateMismatch(t *testing.T) {
	table := newFakeTable()
	table.lastAction[tableKey{0, 1}] = ParseAction{Type: ParseActionShift, State: 1}
	table.lexState[0] = 5

	tk := Token{Symbol: 1, Size: Length{Chars: 1, Bytes: 1}, IsFragile: true, LexState: 3}
	n := NewLeafNode(tk, true)
	n.parseState = 0 // matches the candidate state, so only lex_state can fail it

	if canReuse(table, 0, n) {
		t.Fatalf("canReuse must reject a fragile node whose lex_state disagrees with the current state's lex mode")
	}
}

func TestCanReuseRejectsHideSplitAction(t *testing.T) {
	table := newFakeTable()
	table.lastAction[tableKey{0, 1}] = ParseAction{Type: ParseActionShift, State: 1, CanHideSplit: true}
	n := NewLeafNode(Token{Symbol: 1, Size: Length{Chars: 1, Bytes: 1}}, true)

	if canReuse(table, 0, n) {
		t.Fatalf("canReuse must reject a node whose action may hide an ambiguity")
	}
}
