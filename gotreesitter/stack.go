package gotreesitter

// stackFrame is one node in the graph-structured stack (GSS, spec §3/§4.4).
// A version is simply an index whose "top" points at one of these frames;
// several versions may share a frame (a fork), and a frame may have more
// than one predecessor (a join created by merge), which is what makes the
// stack a graph rather than a plain slice of stacks.
type stackFrame struct {
	state   StateID
	tree    *Node // nil for a placeholder frame pushed before its tree exists
	pending bool  // true for a shifted token not yet wrapped in any reduction
	pos     Length

	preds []*stackFrame
	succs []*stackFrame
}

// PopStatus reports how a PopCount path terminated.
type PopStatus uint8

const (
	// PopOK: n frames were popped cleanly.
	PopOK PopStatus = iota
	// PopFailed: the path ran out of predecessors before n frames were popped.
	PopFailed
	// PopStoppedAtError: the walk reached a frame in the error recovery
	// state before n frames were popped, and stopped there without popping
	// it; the caller (handle_error/repair_error) needs to know this to
	// decide whether the reduce can proceed through it (spec §4.7.3).
	PopStoppedAtError
)

// PopResult is one predecessor path discovered by PopCount: the n popped
// trees, oldest first, the status of that walk, and (privately) the frame
// that becomes the version's new top if this path is committed.
type PopResult struct {
	Trees  []*Node
	Status PopStatus

	after *stackFrame
}

// Stack is the graph-structured parse stack driving a single incremental
// parse (spec §4.4). Versions are dense indices into tops; a removed
// version leaves a nil hole until the next Condense.
type Stack struct {
	tops  []*stackFrame
	arena *frameArena
}

// NewStack creates a stack with one version at the given initial state.
// incremental selects the frame arena's size class (spec §AMBIENT: a small
// slab for steady-state edits, a large one for a first full parse).
func NewStack(initialState StateID, incremental bool) *Stack {
	s := &Stack{arena: acquireFrameArena(incremental)}
	root := s.arena.allocFrame()
	root.state = initialState
	s.tops = []*stackFrame{root}
	return s
}

// VersionCount returns the number of live version slots (some may be nil
// holes left by RemoveVersion until the next Condense).
func (s *Stack) VersionCount() int { return len(s.tops) }

// Alive reports whether version v is still live.
func (s *Stack) Alive(v int) bool { return v >= 0 && v < len(s.tops) && s.tops[v] != nil }

// TopState returns the state at the top of version v.
func (s *Stack) TopState(v int) StateID {
	if !s.Alive(v) {
		return StateIDError
	}
	return s.tops[v].state
}

// TopPosition returns the input position (chars, bytes) at the top of
// version v, used by get_lookahead and by the driver's leftmost-behind
// scheduling (spec §4.5, §4.6).
func (s *Stack) TopPosition(v int) Length {
	if !s.Alive(v) {
		return Length{}
	}
	return s.tops[v].pos
}

// TopTree returns the tree most recently pushed onto version v's top, or
// nil for a placeholder frame.
func (s *Stack) TopTree(v int) *Node {
	if !s.Alive(v) {
		return nil
	}
	return s.tops[v].tree
}

// TopPending reports whether the top of version v is a pending (unreduced)
// shifted token.
func (s *Stack) TopPending(v int) bool {
	if !s.Alive(v) {
		return false
	}
	return s.tops[v].pending
}

// Push extends version v with a new frame holding tree at state, advancing
// its position to pos (spec §4.4 push). tree may be nil for a placeholder
// frame; the callers in this package always push a tree.
func (s *Stack) Push(v int, tree *Node, pending bool, state StateID, pos Length) {
	f := s.arena.allocFrame()
	f.state = state
	f.tree = tree
	f.pending = pending
	f.pos = pos
	if s.Alive(v) {
		cur := s.tops[v]
		f.preds = append(f.preds, cur)
		cur.succs = append(cur.succs, f)
	}
	s.tops[v] = f
}

// PopCount walks back n frames from version v's top, branching at every
// frame with more than one predecessor, and returns one PopResult per
// distinct predecessor path (spec §4.4 pop_count). It does not mutate the
// stack; the caller commits exactly one path per version via Commit,
// duplicating the version first for every additional path (spec §4.7.2:
// "reduce... for each result after the first, duplicate_version").
func (s *Stack) PopCount(v, n int) []PopResult {
	if !s.Alive(v) {
		return []PopResult{{Status: PopFailed}}
	}
	return popWalk(s.tops[v], n, nil, PopOK)
}

func popWalk(f *stackFrame, remaining int, acc []*Node, status PopStatus) []PopResult {
	if remaining == 0 {
		trees := make([]*Node, len(acc))
		copy(trees, acc)
		return []PopResult{{Trees: trees, Status: status, after: f}}
	}
	if f.state == StateIDError && status == PopOK {
		// The walk still needs more frames but has reached an
		// already-synthesized error frame first: stop here instead of
		// popping through it, so the caller sees exactly the essential
		// trees collected above the error point, with the error frame
		// itself left as the version's new top (spec §4.7.2
		// STOPPED_AT_ERROR; repair_error then searches this frame's own
		// predecessors for a completable reduction).
		trees := make([]*Node, len(acc))
		copy(trees, acc)
		return []PopResult{{Trees: trees, Status: PopStoppedAtError, after: f}}
	}
	if len(f.preds) == 0 {
		return []PopResult{{Status: PopFailed}}
	}
	next := append([]*Node{f.tree}, acc...)
	var results []PopResult
	for _, p := range f.preds {
		results = append(results, popWalk(p, remaining-1, next, status)...)
	}
	return results
}

// PopPending pops exactly one pending (shifted, unreduced) frame from the
// top of version v, returning its token tree (spec §4.4 pop_pending). No
// caller in this package uses it; BreakdownTopOfStack pops with PopCount.
func (s *Stack) PopPending(v int) *Node {
	if !s.Alive(v) || s.tops[v] == nil || !s.tops[v].pending {
		return nil
	}
	results := s.PopCount(v, 1)
	r := results[0]
	s.Commit(v, r)
	if len(r.Trees) == 0 {
		return nil
	}
	return r.Trees[0]
}

// PopAll pops every frame on version v back to the stack's root, returning
// the full list of trees oldest-first (spec §4.4 pop_all, used by accept to
// harvest a version's trees for final tree assembly).
func (s *Stack) PopAll(v int) []*Node {
	var trees []*Node
	for s.Alive(v) && len(s.tops[v].preds) > 0 {
		if f := s.tops[v]; f.state == StateIDError {
			// PopAll unwinds a whole version to its root for final tree
			// assembly (accept); an error frame's own content is just
			// another tree to harvest here, not a boundary to stop at the
			// way reduce's bounded pop treats it (spec §4.7.2 vs §4.7.6).
			trees = append([]*Node{f.tree}, trees...)
			s.tops[v] = f.preds[0]
			continue
		}
		results := s.PopCount(v, 1)
		r := results[0]
		s.Commit(v, r)
		trees = append(r.Trees, trees...)
	}
	return trees
}

// Commit applies one PopResult to version v, making the path's resulting
// frame the new top.
func (s *Stack) Commit(v int, r PopResult) {
	if s.Alive(v) && r.after != nil {
		s.tops[v] = r.after
	}
}

// topFrame returns the raw frame at version v's top, or nil if v is dead.
// Exposed to engine.go's repair search, which needs each visited frame's own
// state and identity rather than the narrower per-field accessors above.
func (s *Stack) topFrame(v int) *stackFrame {
	if !s.Alive(v) {
		return nil
	}
	return s.tops[v]
}

// walkBelow walks every frame reachable from f's predecessors, depth-first,
// calling fn with each visited frame, the trees collected from f (exclusive)
// down to (but not including) that frame in nearest-first order, and the
// frame's depth below f (spec §4.4 iterate, restricted to start strictly
// below a given frame; used by repair_error's search of the stack below an
// error frame for a completable reduction, spec §4.7.4).
func (s *Stack) walkBelow(f *stackFrame, fn func(f *stackFrame, below []*Node, depth int)) {
	var walk func(f *stackFrame, depth int, below []*Node)
	walk = func(f *stackFrame, depth int, below []*Node) {
		fn(f, below, depth)
		next := append(append([]*Node(nil), below...), f.tree)
		for _, p := range f.preds {
			walk(p, depth+1, next)
		}
	}
	for _, p := range f.preds {
		walk(p, 1, nil)
	}
}

// DuplicateVersion creates a new version sharing v's current top frame
// (spec §4.4 duplicate_version), used whenever a single version's lookahead
// needs more than one outcome: a GLR fork across multiple reduce actions,
// or recover keeping the pre-error version alive alongside a repaired one.
func (s *Stack) DuplicateVersion(v int) int {
	if !s.Alive(v) {
		s.tops = append(s.tops, nil)
		return len(s.tops) - 1
	}
	s.tops = append(s.tops, s.tops[v])
	return len(s.tops) - 1
}

// RenumberVersion moves the frame at version `from` to live at version `to`,
// vacating `from` (spec §4.4 renumber_version; used by handleError when its
// gathered-reduce forks collapse down to one survivor).
func (s *Stack) RenumberVersion(from, to int) {
	if from < 0 || from >= len(s.tops) {
		return
	}
	for to >= len(s.tops) {
		s.tops = append(s.tops, nil)
	}
	s.tops[to] = s.tops[from]
	if from != to {
		s.tops[from] = nil
	}
}

// RemoveVersion kills version v, leaving a hole until Condense compacts it
// (spec §4.4 remove_version).
func (s *Stack) RemoveVersion(v int) {
	if v >= 0 && v < len(s.tops) {
		s.tops[v] = nil
	}
}

// Merge attempts to join version b into version a: if their tops agree on
// (state, position, pending) -- the GLR criterion for "these are the same
// parse continuing" -- a new top frame replaces a's, with the union of both
// tops' predecessors and the tree SelectTree picks from the two tops' trees,
// and b is removed, returning true (spec §4.4 merge). A false return leaves
// both versions untouched.
func (s *Stack) Merge(a, b int) bool {
	if !s.Alive(a) || !s.Alive(b) || a == b {
		return false
	}
	ta, tb := s.tops[a], s.tops[b]
	if ta.state != tb.state || ta.pos != tb.pos || ta.pending != tb.pending {
		return false
	}

	winner := SelectTree(ta.tree, tb.tree)
	merged := &stackFrame{state: ta.state, pos: ta.pos, pending: ta.pending, tree: winner}
	merged.preds = unionPreds(ta.preds, tb.preds)
	for _, p := range merged.preds {
		p.succs = append(p.succs, merged)
	}
	s.tops[a] = merged
	s.tops[b] = nil
	return true
}

func unionPreds(a, b []*stackFrame) []*stackFrame {
	seen := make(map[*stackFrame]bool, len(a)+len(b))
	out := make([]*stackFrame, 0, len(a)+len(b))
	for _, f := range a {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range b {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// MergeFrom tries to merge every version at index >= n into an earlier
// surviving version, in a single pass in index order
// (spec §4.4 merge_from, §4.7.2's "finally, merge_from" after a reduce
// completes). It is cheap to call unconditionally: with nothing new to
// merge it scans and finds no matching pair.
func (s *Stack) MergeFrom(n int) {
	for i := n; i < len(s.tops); i++ {
		if !s.Alive(i) {
			continue
		}
		for j := 0; j < i; j++ {
			if !s.Alive(j) {
				continue
			}
			if s.Merge(j, i) {
				break
			}
		}
	}
}

// Condense drops dead version holes and renumbers the survivors densely
// starting at 0, returning the old->new index mapping (spec §4.4 condense,
// called by the driver at the end of every outer-loop iteration). It does
// not merge versions; merging happens in MergeFrom and Merge.
func (s *Stack) Condense() map[int]int {
	mapping := make(map[int]int)
	compacted := make([]*stackFrame, 0, len(s.tops))
	for old, f := range s.tops {
		if f == nil {
			continue
		}
		mapping[old] = len(compacted)
		compacted = append(compacted, f)
	}
	s.tops = compacted
	return mapping
}

// Release returns the stack's frame arena to its pool. Call once the stack
// (and every tree it produced) is no longer needed.
func (s *Stack) Release() { s.arena.Release() }
