package gotreesitter

import (
	"fmt"

	"github.com/cnf/structhash"
)

// Range is a span of source text.
type Range struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

// Tree-local sentinels for Node.parseState (spec §3: "parse_state tag:
// either a state id, or one of two sentinels"). These live in a separate
// numbering space from StateIDError (the parser's own recovery state) even
// though nothing stops them sharing a numeric value; keeping them visibly
// distinct avoids a reader conflating "the parser is mid-recovery" with "this
// subtree's parse_state tag says error/independent".
const (
	TreeStateError       StateID = 0xFFFE
	TreeStateIndependent StateID = 0xFFFD
)

// lexStateIndependent marks a node whose lex_state tag is INDEPENDENT: it was
// built entirely from extras/whitespace, or its content can never interact
// with neighboring lex state, so the cursor may reuse it under any lex state
// (spec §4.5, can_reuse condition 3).
const lexStateIndependent int32 = -1

// InputEdit describes one text edit applied to a previous parse, in both
// byte and (row, column) point coordinates (spec §4.5/§4.6: edits are what
// the cursor's has_changes marking is driven from).
type InputEdit struct {
	StartByte  uint32
	OldEndByte uint32
	NewEndByte uint32

	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// offset returns how much this edit shifts byte positions at or after its
// original end: positive for an insertion/net-growth, negative for a
// deletion/net-shrink.
func (e InputEdit) offset() int64 {
	return int64(e.NewEndByte) - int64(e.OldEndByte)
}

// Node is a syntax tree node (spec §3's Tree node). Nodes are built
// bottom-up and, once a parent links them in, are conceptually immutable
// except through SetChildren/switchChildren, which replace a node's children
// and recompute its derived fields in place while holding its identity fixed
// (so other frames already holding a pointer to it observe the update).
type Node struct {
	symbol Symbol

	padding Length // extra/whitespace preceding this node's content
	size    Length // this node's own content span, not including padding

	startByte  uint32
	endByte    uint32
	startPoint Point
	endPoint   Point

	children          []*Node
	fieldIDs          []FieldID // parallel to children, 0 = no field
	namedChildCount   int
	visibleChildCount int

	errorSize uint32 // spec §3: char-size sum of every maximal error/skipped subtree

	isNamed      bool
	isMissing    bool
	extra        bool // whitespace/comment-like; spec §3 flags
	hasChanges   bool
	fragileLeft  bool
	fragileRight bool

	lexState   int32   // lexStateIndependent, or a specific LexState id
	parseState StateID // a grammar state id, TreeStateError, or TreeStateIndependent

	firstUnexpectedCharacter rune // valid only when symbol == SymbolError

	// context is the cursor's non-owning back-reference (spec §3: "does not
	// imply ownership"). setChildren/switchChildren set it when linking a
	// child under a parent; the cursor reads it while walking a previous
	// tree looking for reusable nodes.
	contextParent *Node
	contextIndex  int

	refCount int32
}

// Symbol returns the node's grammar symbol.
func (n *Node) Symbol() Symbol { return n.symbol }

// IsNamed reports whether this is a named node (as opposed to anonymous syntax like punctuation).
func (n *Node) IsNamed() bool { return n.isNamed }

// IsMissing reports whether this node was inserted by error recovery.
func (n *Node) IsMissing() bool { return n.isMissing }

// IsExtra reports whether this node is whitespace/comment-like (spec §3).
func (n *Node) IsExtra() bool { return n.extra }

// HasChanges reports whether this node (or a descendant) falls within an
// edited range and so cannot be reused as-is (spec §4.5/§4.6).
func (n *Node) HasChanges() bool { return n.hasChanges }

// IsFragile reports whether either edge of this node is fragile: the cursor
// must not reuse it across a parse_state/lex_state boundary mismatch without
// first breaking it down into its children (spec §4.5).
func (n *Node) IsFragile() bool { return n.fragileLeft || n.fragileRight }

// HasError reports whether this node's subtree contains any error content.
func (n *Node) HasError() bool { return n.errorSize > 0 || n.symbol == SymbolError }

// ErrorSize returns the char-size sum of every maximal error/skipped subtree
// within this node (spec §3, §8 "Error accounting").
func (n *Node) ErrorSize() uint32 { return n.errorSize }

// StartByte returns the byte offset where this node begins.
func (n *Node) StartByte() uint32 { return n.startByte }

// EndByte returns the byte offset where this node ends (exclusive).
func (n *Node) EndByte() uint32 { return n.endByte }

// StartPoint returns the row/column position where this node begins.
func (n *Node) StartPoint() Point { return n.startPoint }

// EndPoint returns the row/column position where this node ends.
func (n *Node) EndPoint() Point { return n.endPoint }

// Padding returns the (chars, bytes) of extra content preceding this node.
func (n *Node) Padding() Length { return n.padding }

// Size returns the (chars, bytes) of this node's own content, excluding padding.
func (n *Node) Size() Length { return n.size }

// Range returns the full span of this node as a Range.
func (n *Node) Range() Range {
	return Range{
		StartByte:  n.startByte,
		EndByte:    n.endByte,
		StartPoint: n.startPoint,
		EndPoint:   n.endPoint,
	}
}

// ChildCount returns the number of children (both named and anonymous).
func (n *Node) ChildCount() int { return len(n.children) }

// NamedChildCount returns the number of named children.
func (n *Node) NamedChildCount() int { return n.namedChildCount }

// VisibleChildCount returns the number of children visible in a pretty-printed tree.
func (n *Node) VisibleChildCount() int { return n.visibleChildCount }

// Child returns the i-th child, or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// NamedChild returns the i-th named child (skipping anonymous children),
// or nil if i is out of range.
func (n *Node) NamedChild(i int) *Node {
	count := 0
	for _, c := range n.children {
		if c.isNamed {
			if count == i {
				return c
			}
			count++
		}
	}
	return nil
}

// ChildByFieldName returns the first child assigned to the given field name,
// or nil if no child has that field. The Language is needed to resolve field
// names to IDs.
func (n *Node) ChildByFieldName(name string, lang *Language) *Node {
	fid := FieldID(0)
	found := false
	for i, fn := range lang.FieldNames {
		if fn == name {
			fid = FieldID(i)
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	for i, id := range n.fieldIDs {
		if id == fid && i < len(n.children) {
			return n.children[i]
		}
	}
	return nil
}

// Children returns a slice of all children. Callers must not mutate it;
// use SetChildren to replace a node's children.
func (n *Node) Children() []*Node { return n.children }

// Text returns the source text covered by this node.
func (n *Node) Text(source []byte) string {
	return string(source[n.startByte:n.endByte])
}

// Type returns the node's type name from the language.
func (n *Node) Type(lang *Language) string {
	if int(n.symbol) < len(lang.SymbolNames) {
		return lang.SymbolNames[n.symbol]
	}
	return ""
}

// Retain increments the node's reference count (spec §3/§5: stack frames and
// the tree itself hold references into a shared, ref-counted node graph).
func (n *Node) Retain() *Node {
	if n != nil {
		n.refCount++
	}
	return n
}

// Release decrements the node's reference count. Nodes do not eagerly free
// their children on reaching zero: Go's GC reclaims unreachable nodes once
// every referencing frame has released and dropped its pointer, so Release
// exists to make ownership transfers explicit in the stack/cursor/engine
// code rather than to drive manual deallocation.
func (n *Node) Release() {
	if n != nil {
		n.refCount--
	}
}

// RefCount returns the current reference count, mostly useful in tests that
// assert a frame's pop released what it held.
func (n *Node) RefCount() int32 { return n.refCount }

// contentHash returns a structural digest of this subtree, combining symbol,
// error_size, and every child's own contentHash. It never decides tie-breaks
// on its own: it is strictly an equality fast-path, letting compare (and so
// select_tree) skip the full recursive comparison, and reduce detect a
// duplicate reduction, when two candidate trees are (almost certainly)
// identical.
func (n *Node) contentHash() string {
	if n == nil {
		return "nil"
	}
	childHashes := make([]string, len(n.children))
	for i, c := range n.children {
		childHashes[i] = c.contentHash()
	}
	key := struct {
		Symbol    Symbol
		ErrorSize uint32
		Extra     bool
		Children  []string
	}{n.symbol, n.errorSize, n.extra, childHashes}
	h, err := structhash.Hash(key, 1)
	if err != nil {
		// structhash only fails on unsupported field kinds, which the
		// struct above never uses; fall back to a cheap, still-consistent
		// identity rather than panicking out of a comparison helper.
		return fmt.Sprintf("%d:%d:%d", n.symbol, n.errorSize, len(n.children))
	}
	return h
}

// NewLeafNode creates a terminal/leaf node from a lexed token (spec §4.3
// make_leaf). Per spec §4.2, a lexed leaf's lex_state tag is INDEPENDENT
// unless the lexer reported the accept as fragile, in which case the tag is
// the DFA state that produced it -- only a fragile accept can be unmade by an
// edit resolving a different maximal-munch/lookahead choice, so only a
// fragile leaf needs its lex_state checked by can_reuse (spec §4.5).
func NewLeafNode(tok Token, named bool) *Node {
	lexState := lexStateIndependent
	if tok.IsFragile {
		lexState = int32(tok.LexState)
	}
	return &Node{
		symbol:       tok.Symbol,
		isNamed:      named,
		padding:      tok.Padding,
		size:         tok.Size,
		startByte:    tok.StartByte,
		endByte:      tok.EndByte,
		startPoint:   tok.StartPoint,
		endPoint:     tok.EndPoint,
		lexState:     lexState,
		fragileLeft:  tok.IsFragile,
		fragileRight: tok.IsFragile,
		parseState:   TreeStateIndependent,
	}
}

// NewExtraLeafNode creates a leaf node for extra (whitespace/comment)
// content shifted with the Extra flag set.
func NewExtraLeafNode(tok Token, named bool) *Node {
	n := NewLeafNode(tok, named)
	n.extra = true
	return n
}

// NewErrorLeafNode creates a leaf node for one unexpected character found
// during error-mode lexing (spec §4.3 make_error_leaf, §4.2 error tokens).
// Its own error_size is its char size: an error leaf directly IS the skipped
// content it represents.
func NewErrorLeafNode(tok Token) *Node {
	return &Node{
		symbol:                   SymbolError,
		padding:                  tok.Padding,
		size:                     tok.Size,
		startByte:                tok.StartByte,
		endByte:                  tok.EndByte,
		startPoint:               tok.StartPoint,
		endPoint:                 tok.EndPoint,
		errorSize:                tok.Size.Chars,
		lexState:                 lexStateIndependent,
		parseState:               TreeStateError,
		firstUnexpectedCharacter: tok.FirstUnexpectedCharacter,
	}
}

// MakeNode builds a parent node over children[:n] (spec §4.3 make_node: "n
// treats the given children array as a prefix of length n"; any trailing
// elements beyond n are left to the caller, who typically re-pushes them).
// parseState tags the result with the state the driver was in after
// reducing; lexState is left INDEPENDENT.
func MakeNode(sym Symbol, named bool, n int, children []*Node, fieldIDs []FieldID, parseState StateID) *Node {
	node := &Node{
		symbol:     sym,
		isNamed:    named,
		fieldIDs:   fieldIDs,
		lexState:   lexStateIndependent,
		parseState: parseState,
	}
	setChildren(node, append([]*Node(nil), children[:n]...))
	return node
}

// MakeErrorNode builds a synthesized ERROR node wrapping the given children
// (spec §4.3 make_error_node; used by repair_error to absorb skipped input,
// by handle_error to wrap the unexpected lookahead, and by recover_eof to
// synthesize an empty error placeholder when children is empty).
func MakeErrorNode(children []*Node) *Node {
	node := &Node{
		symbol:     SymbolError,
		lexState:   lexStateIndependent,
		parseState: TreeStateError,
	}
	setChildren(node, children)
	node.errorSize = node.size.Chars // the whole span is one maximal error subtree
	return node
}

// SetChildren replaces node's children in place and recomputes every
// derived field (span, padding, error_size, child counts) from them (spec
// §4.3 set_children). Used by accept to splice extras discovered past the
// chosen root back under it.
func SetChildren(node *Node, children []*Node) { setChildren(node, children) }

func setChildren(node *Node, children []*Node) {
	node.children = children
	node.namedChildCount = 0
	node.visibleChildCount = 0
	node.errorSize = 0
	node.hasChanges = false

	if len(children) == 0 {
		return
	}

	first, last := children[0], children[len(children)-1]
	node.padding = first.padding
	node.startByte = first.startByte
	node.startPoint = first.startPoint
	node.endByte = last.endByte
	node.endPoint = last.endPoint

	var size Length
	for i, c := range children {
		c.contextParent = node
		c.contextIndex = i

		if c.isNamed {
			node.namedChildCount++
		}
		if !c.extra {
			node.visibleChildCount++
		}
		if c.hasChanges {
			node.hasChanges = true
		}

		// spec §3: error_size is the sum, over non-extra children, of the
		// child's own error_size -- except a child that is itself a
		// maximal error/skipped subtree contributes its full char size
		// instead, since that whole span (not some nested fraction of it)
		// is the error content.
		if !c.extra {
			if c.symbol == SymbolError {
				node.errorSize += c.size.Chars
			} else {
				node.errorSize += c.errorSize
			}
		}

		size = size.Add(c.padding).Add(c.size)
	}
	node.size = size.Sub(node.padding)
}

// Copy returns a shallow clone of node with its own reference count and no
// context back-reference (spec §4.3 make_copy: used by recover to give the
// error-branch duplicate its own copy of the lookahead).
func (n *Node) Copy() *Node {
	cp := *n
	cp.children = append([]*Node(nil), n.children...)
	cp.fieldIDs = append([]FieldID(nil), n.fieldIDs...)
	cp.contextParent = nil
	cp.contextIndex = 0
	cp.refCount = 0
	return &cp
}

// switchChildren replaces dst's content with candidate's while keeping dst's
// identity (pointer) fixed, so every existing holder of *dst observes the
// winning content without needing to be revisited (spec §4.3/§4.7.2
// switch_children: ambiguity resolution swaps a parent's children set for a
// better-scoring alternative discovered later during the same reduce).
func switchChildren(dst, candidate *Node) {
	for _, c := range candidate.children {
		c.contextParent = dst
	}
	dst.children = candidate.children
	dst.fieldIDs = candidate.fieldIDs
	dst.padding = candidate.padding
	dst.size = candidate.size
	dst.startByte = candidate.startByte
	dst.endByte = candidate.endByte
	dst.startPoint = candidate.startPoint
	dst.endPoint = candidate.endPoint
	dst.namedChildCount = candidate.namedChildCount
	dst.visibleChildCount = candidate.visibleChildCount
	dst.errorSize = candidate.errorSize
	dst.hasChanges = candidate.hasChanges
}

// TotalSize returns the full (chars, bytes) span this node contributes to
// its parent, including its own leading padding (spec §8 "Coverage": summing
// TotalSize across a sequence of siblings, with no gaps or overlaps, is what
// makes the root's TotalSize equal the input length).
func (n *Node) TotalSize() Length { return n.padding.Add(n.size) }

// TotalChars returns TotalSize().Chars.
func (n *Node) TotalChars() uint32 { return n.TotalSize().Chars }

// compare imposes a deterministic total order between two parse trees that
// cover the same input, used by select_tree to break exact error_size ties
// (spec §4.3 compare, §8 "Total order"). It orders first by symbol, then by
// child count, then lexicographically over each child pair, and finally (for
// equal-shaped leaves) by byte span -- never by pointer identity or
// insertion order, so the outcome does not depend on which candidate arrived
// first during a GLR fork.
func compare(a, b *Node) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a.contentHash() == b.contentHash() {
		return 0
	}
	if a.symbol != b.symbol {
		if a.symbol < b.symbol {
			return -1
		}
		return 1
	}
	if len(a.children) != len(b.children) {
		if len(a.children) < len(b.children) {
			return -1
		}
		return 1
	}
	for i := range a.children {
		if c := compare(a.children[i], b.children[i]); c != 0 {
			return c
		}
	}
	if a.startByte != b.startByte {
		if a.startByte < b.startByte {
			return -1
		}
		return 1
	}
	if a.endByte != b.endByte {
		if a.endByte < b.endByte {
			return -1
		}
		return 1
	}
	return 0
}

// SelectTree picks the better of two candidate parses of the same span
// (spec §4.3 select, §4.7.2's ambiguity merge): smaller error_size wins
// outright; on a tie, compare imposes the deterministic order; a full tie
// keeps the incumbent so select_tree is stable under repeated calls.
func SelectTree(incumbent, candidate *Node) *Node {
	if incumbent == nil {
		return candidate
	}
	if candidate == nil {
		return incumbent
	}
	if candidate.errorSize != incumbent.errorSize {
		if candidate.errorSize < incumbent.errorSize {
			return candidate
		}
		return incumbent
	}
	if compare(candidate, incumbent) < 0 {
		return candidate
	}
	return incumbent
}

// Tree holds a complete syntax tree along with its source text, language,
// and the list of edits applied since it was produced (spec §4.5/§4.6:
// Tree.Edit/Edits feed has_changes marking for the next incremental parse).
type Tree struct {
	root     *Node
	source   []byte
	language *Language
	edits    []InputEdit
}

// NewTree creates a new Tree.
func NewTree(root *Node, source []byte, lang *Language) *Tree {
	return &Tree{root: root, source: source, language: lang}
}

// RootNode returns the tree's root node.
func (t *Tree) RootNode() *Node { return t.root }

// Source returns the original source text.
func (t *Tree) Source() []byte { return t.source }

// Language returns the language used to parse this tree.
func (t *Tree) Language() *Language { return t.language }

// Edit records a text edit against this tree and marks every node whose span
// (including its leading padding) overlaps [StartByte, OldEndByte) as
// has_changes, shifting the byte
// positions of everything after it by the edit's net size delta (spec §4.5:
// "has_changes... driven by which nodes fall within an edited range").
// Parser.Parse's ReusableNodeCursor consults these markings when deciding
// what it may reuse from this tree; after editing, call Parse again with the
// new source and this tree passed as previous.
func (t *Tree) Edit(edit InputEdit) {
	t.edits = append(t.edits, edit)
	if t.root != nil {
		editNode(t.root, edit)
	}
}

// Edits returns every edit applied to this tree since it was produced.
func (t *Tree) Edits() []InputEdit { return t.edits }

func editNode(n *Node, edit InputEdit) {
	spanStart := n.startByte
	if n.padding.Bytes <= spanStart {
		spanStart -= n.padding.Bytes
	}
	touches := edit.StartByte < n.endByte && edit.OldEndByte > spanStart
	if touches {
		n.hasChanges = true
		n.endByte = uint32(int64(n.endByte) + edit.offset())
	} else if n.startByte >= edit.OldEndByte {
		shift := edit.offset()
		n.startByte = uint32(int64(n.startByte) + shift)
		n.endByte = uint32(int64(n.endByte) + shift)
	}

	for _, c := range n.children {
		editNode(c, edit)
	}
}
