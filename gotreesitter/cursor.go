package gotreesitter

// ReusableNodeCursor walks a previous parse tree in document order, offering
// up the next candidate subtree at the current input position for reuse
// (spec §3/§4.5). It is created once per incremental parse from the
// previous tree and is non-owning: the caller of Parse keeps that tree
// alive for the cursor's lifetime (spec §5).
type ReusableNodeCursor struct {
	current   *Node
	charIndex uint32
}

// NewReusableNodeCursor creates a cursor positioned at the start of tree. A
// nil tree (a full, non-incremental parse) yields a cursor that is
// immediately retired.
func NewReusableNodeCursor(tree *Tree) *ReusableNodeCursor {
	c := &ReusableNodeCursor{}
	if tree != nil {
		c.current = tree.RootNode()
	}
	return c
}

// Done reports whether the cursor has walked past the end of its tree.
func (c *ReusableNodeCursor) Done() bool { return c.current == nil }

// Snapshot returns a copy of the cursor's position, used by the driver to
// save/restore a cursor across versions within one outer-loop iteration
// (spec §4.6 step 2: "save a cursor snapshot").
func (c *ReusableNodeCursor) Snapshot() ReusableNodeCursor { return *c }

// Restore resets the cursor to a previously captured snapshot.
func (c *ReusableNodeCursor) Restore(snap ReusableNodeCursor) { *c = snap }

// advance implements pop_reusable_node: it adds the current subtree's total
// char size to char_index, then walks up ancestors until it finds one with
// a right sibling, becoming null at the end of the tree (spec §4.5).
func (c *ReusableNodeCursor) advance() {
	if c.current == nil {
		return
	}
	c.charIndex += c.current.TotalChars()

	node := c.current
	for {
		parent := node.contextParent
		if parent == nil {
			c.current = nil
			return
		}
		if idx := node.contextIndex + 1; idx < len(parent.children) {
			c.current = parent.children[idx]
			return
		}
		node = parent
	}
}

// breakdown descends into the current node's first child, the breakdown
// step used when the current candidate is edited or otherwise unsafe to
// reuse whole (spec §4.5: "descends to its first child, repeating while the
// child is fragile"). It reports false (and advances past the node instead)
// when the current node is a leaf and so cannot be broken down further.
func (c *ReusableNodeCursor) breakdown() bool {
	if c.current == nil || len(c.current.children) == 0 {
		c.advance()
		return false
	}
	c.current = c.current.children[0]
	for c.current.IsFragile() && len(c.current.children) > 0 {
		c.current = c.current.children[0]
	}
	return true
}

// canReuse implements spec §4.5's can_reuse predicate.
func canReuse(table ParseTable, state StateID, n *Node) bool {
	if n.symbol == SymbolError {
		return false
	}
	if n.IsFragile() && n.parseState != state {
		return false
	}
	if n.lexState != lexStateIndependent && uint16(n.lexState) != table.LexStateFor(state) {
		return false
	}
	act, ok := table.LastAction(state, n.symbol)
	if !ok || act.CanHideSplit {
		return false
	}
	if n.extra && !table.AllowsExtra(state, n.symbol) {
		return false
	}
	return true
}

// LookaheadResult is what GetLookahead found: either a reusable subtree
// (Reused), or nothing -- in which case BreakdownStackTop signals that the
// cursor bottomed out at a changed leaf and the engine should also try
// breakdown_top_of_stack before falling back to a fresh lex (spec §4.5 step
// 3: "additionally, if it is a leaf, request breakdown of the stack top").
type LookaheadResult struct {
	Node              *Node
	Reused            bool
	BreakdownStackTop bool
}

// maxBreakdownSteps bounds GetLookahead's retry loop by the deepest
// plausible tree; breakdown always makes progress (descend or advance), so
// this is a safety net against a malformed tree, not a normal exit path.
const maxBreakdownSteps = 4096

// GetLookahead either returns a reusable subtree from the previous tree or
// reports that the caller should ask the lexer for a fresh token (spec
// §4.5). table and state are the parse table and the version's current top
// state; topPosition is that version's current input position.
func GetLookahead(table ParseTable, state StateID, topPosition Length, cursor *ReusableNodeCursor) LookaheadResult {
	for step := 0; step < maxBreakdownSteps; step++ {
		if cursor.current == nil {
			return LookaheadResult{}
		}

		if cursor.charIndex > topPosition.Chars {
			return LookaheadResult{}
		}
		if cursor.charIndex < topPosition.Chars {
			cursor.advance()
			continue
		}

		cur := cursor.current
		if cur.HasChanges() {
			wasLeaf := len(cur.children) == 0
			if !cursor.breakdown() && wasLeaf {
				return LookaheadResult{BreakdownStackTop: true}
			}
			continue
		}

		if !canReuse(table, state, cur) {
			if !cursor.breakdown() {
				return LookaheadResult{}
			}
			continue
		}

		cursor.advance()
		return LookaheadResult{Node: cur.Retain(), Reused: true}
	}
	return LookaheadResult{}
}
