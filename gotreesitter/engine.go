package gotreesitter

import "github.com/emirpasic/gods/sets/hashset"

// Engine drives one version of the stack through shift/reduce/accept/recover
// actions for a single lookahead (spec §4.7). It holds no state of its own
// beyond its table, its stack and the Accepted tree: everything else that
// must survive across calls
// (error_repair_depth, last_reduction_version) lives on the driver and is
// threaded in explicitly, since a GLR fork can leave several versions mid
// error-repair at once.
type Engine struct {
	table ParseTable
	stack *Stack

	// Accepted holds the best finished tree seen so far across every version
	// that has reached ParseActionAccept (spec §4.7.6): each new acceptance
	// is resolved against it via SelectTree, so by the time every version has
	// either died or accepted, Accepted holds the winner (spec §8 "Ambiguity
	// resolution").
	Accepted *Node
}

// NewEngine creates an Engine over table driving stack.
func NewEngine(table ParseTable, stack *Stack) *Engine {
	return &Engine{table: table, stack: stack}
}

// ConsumeStatus reports the outcome of ConsumeLookahead for one version.
type ConsumeStatus uint8

const (
	ConsumeUpdated ConsumeStatus = iota
	ConsumeRemoved
	ConsumeFailed
)

// lookaheadTree is what ConsumeLookahead advances through a version: either a
// reused subtree (Reused true) or a freshly lexed/synthesized one. sym is
// redundant with tree.Symbol() except for the synthetic end-of-input
// lookahead, which carries no tree at all.
type lookaheadTree struct {
	tree   *Node
	sym    Symbol
	reused bool
}

// ConsumeLookahead drives version v through actions for one lookahead symbol
// until it shifts, dies, or needs a fresh lookahead (spec §4.7 consume_
// lookahead's outer "repeat... reduce; if it shifted, stop" loop). errorDepth
// and lastReductionVersion are the driver's per-version error-repair state,
// passed by pointer since a GLR fork during repair can graft new versions
// that must inherit them.
func (e *Engine) ConsumeLookahead(v int, la lookaheadTree, errorDepth *int, lastReductionVersion *int) ConsumeStatus {
	for {
		if !e.stack.Alive(v) {
			return ConsumeRemoved
		}
		state := e.stack.TopState(v)

		// The action lookup is unconditional, even at StateIDError: a table
		// may register a RECOVER (or SHIFT) action there for a lookahead
		// that looks like a clean restart point, and that fires through the
		// ordinary dispatch below exactly like any other cell (spec §4.7
		// step 2's RECOVER case). handleError is reached only once this
		// lookup comes back empty.
		actions := e.table.Actions(state, la.sym)
		if len(actions) == 0 {
			if e.stack.TopPending(v) && e.BreakdownTopOfStack(v) {
				continue
			}
			// handleError, like a shift, consumes this lookahead (wrapping
			// it into the synthesized error frame); the driver fetches a
			// fresh one next time round rather than retrying this same
			// symbol against the new ERROR state.
			return e.handleError(v, la, errorDepth, lastReductionVersion)
		}

		// A cell with more than one enabled action is a GLR fork: run the
		// first action on v itself, and fork a duplicate version for every
		// other action so each candidate continues independently (not one of
		// spec.md's three flagged Open Questions, but an unavoidable reading
		// of "the parser forks whenever more than one action is available" --
		// recorded in DESIGN.md as an implementation interpretation).
		for i := 1; i < len(actions); i++ {
			fv := e.stack.DuplicateVersion(v)
			e.applyAction(fv, actions[i], la, actions, errorDepth, lastReductionVersion)
		}

		status, shifted := e.applyAction(v, actions[0], la, actions, errorDepth, lastReductionVersion)
		if shifted || status != ConsumeUpdated {
			return status
		}
		// A reduce consumed no lookahead; the reduced version(s) may now sit
		// in a different state that knows what to do with la -- loop.
	}
}

// applyAction performs exactly one action on version v, returning whether it
// shifted the lookahead (stopping the outer loop) and the resulting status.
// cellActions is the full action list the triggering (state, la.sym) cell
// held; reduce threads it through to repairError in case popping the
// reduction's children crosses an already-synthesized error frame (spec
// §4.7.2 STOPPED_AT_ERROR).
func (e *Engine) applyAction(v int, act ParseAction, la lookaheadTree, cellActions []ParseAction, errorDepth *int, lastReductionVersion *int) (ConsumeStatus, bool) {
	switch act.Type {
	case ParseActionShift:
		e.shift(v, act, la)
		return ConsumeUpdated, true

	case ParseActionReduce:
		e.reduce(v, act, la, cellActions, errorDepth, lastReductionVersion)
		return ConsumeUpdated, false

	case ParseActionAccept:
		root := e.accept(v)
		e.Accepted = SelectTree(e.Accepted, root)
		return ConsumeUpdated, true

	case ParseActionRecover:
		e.recover(v, act.State, la)
		return ConsumeUpdated, true

	default:
		return ConsumeFailed, false
	}
}

// BreakdownTopOfStack implements spec §4.7.1: pop version v's top tree and
// push its children back individually, recomputing each one's state via
// gotoState, so a subsequent PopCount can split at a finer grain than the
// single subtree the cursor offered (used when get_lookahead's reuse
// candidate has changes and is already a leaf at the stack top, spec §4.5
// step 3).
func (e *Engine) BreakdownTopOfStack(v int) bool {
	if !e.stack.Alive(v) {
		return false
	}
	top := e.stack.TopTree(v)
	if top == nil || len(top.Children()) == 0 {
		return false
	}
	pending := e.stack.TopPending(v)
	results := e.stack.PopCount(v, 1)
	r := results[0]
	if r.Status == PopFailed {
		return false
	}
	e.stack.Commit(v, r)

	state := e.stack.TopState(v)
	pos := e.stack.TopPosition(v)
	children := top.Children()
	for i, c := range children {
		state = e.gotoState(state, c.Symbol())
		pos = pos.Add(c.TotalSize())
		isLast := i == len(children)-1
		e.stack.Push(v, c, pending && isLast, state, pos)
	}
	return true
}

// shift pushes the lookahead tree as a pending frame at act.State (spec
// §4.1/§4.4 push). A reused subtree is pushed exactly as the cursor produced
// it; a freshly lexed token is wrapped into a leaf first by the driver before
// reaching here (la.tree is already a *Node either way).
func (e *Engine) shift(v int, act ParseAction, la lookaheadTree) {
	tree := la.tree
	if act.Extra {
		tree.extra = true
	}
	pos := e.stack.TopPosition(v).Add(tree.TotalSize())
	e.stack.Push(v, tree, true, act.State, pos)
}

// reduce pops act.ChildCount trees, trims trailing extras back onto the
// stack (spec §4.7.2: extras at the end of a production's span belong to
// whatever comes after it, not to the reduced node), builds the parent, and
// pushes it as the new (non-pending) top. Every predecessor path PopCount
// finds becomes its own version, one ambiguous alternative per GLR fork;
// ambiguous alternatives at the same (state, position) are resolved via
// SelectTree/switchChildren rather than kept as separate versions, matching
// select's contract that only the winning content is ever visible (spec
// §4.3/§4.7.2). A path that comes back PopStoppedAtError means this
// reduction's span reaches back across an already-synthesized error frame; a
// plain reduce can't bridge that, so it is handed to repairError instead
// (spec §4.7.2's STOPPED_AT_ERROR branch). reduce reports whether any path
// produced a live version, which handleError's gathered-reduce loop uses to
// decide whether it found a plain way forward.
func (e *Engine) reduce(v int, act ParseAction, la lookaheadTree, cellActions []ParseAction, errorDepth *int, lastReductionVersion *int) bool {
	initialVersionCount := e.stack.VersionCount()
	results := e.stack.PopCount(v, int(act.ChildCount))

	seen := hashset.New()
	pushedByHash := map[string]*Node{}
	first := true
	succeeded := false

	nextVersion := func() int {
		if first {
			first = false
			return v
		}
		return e.stack.DuplicateVersion(v)
	}

	for _, r := range results {
		switch r.Status {
		case PopFailed:
			continue

		case PopStoppedAtError:
			vv := nextVersion()
			e.stack.Commit(vv, r)
			*errorDepth = essentialCount(r.Trees)
			if e.repairError(vv, r.Trees, la, cellActions, lastReductionVersion) == ConsumeUpdated {
				succeeded = true
			}
			continue
		}

		children := trimTrailingExtras(r.Trees)
		afterState := r.after.state
		newState := e.gotoState(afterState, act.Symbol)

		node := MakeNode(act.Symbol, e.table.SymbolMeta(act.Symbol).Named, len(children), children, nil, newState)
		if act.Fragile {
			node.fragileLeft = true
			node.fragileRight = true
		}

		key := node.contentHash()
		if seen.Contains(key) {
			// An equivalent reduction already landed at this version's
			// position in this same call: resolve the ambiguity in place
			// (spec §4.3/§4.7.2 switch_children) instead of letting two
			// indistinguishable versions survive side by side.
			incumbent := pushedByHash[key]
			if winner := SelectTree(incumbent, node); winner != incumbent {
				switchChildren(incumbent, winner)
			}
			continue
		}
		seen.Add(key)

		vv := nextVersion()
		e.stack.Commit(vv, r)
		pos := e.stack.TopPosition(vv).Add(node.TotalSize())
		e.stack.Push(vv, node, false, newState, pos)
		for _, x := range r.Trees[len(children):] {
			pos = pos.Add(x.TotalSize())
			e.stack.Push(vv, x, false, newState, pos)
		}
		pushedByHash[key] = node
		succeeded = true
	}

	e.stack.MergeFrom(initialVersionCount)
	return succeeded
}

// trimTrailingExtras removes extra (whitespace/comment) trees from the end
// of a popped child slice, returning them to whatever follows the reduced
// node rather than folding them into it (spec §4.7.2).
func trimTrailingExtras(trees []*Node) []*Node {
	end := len(trees)
	for end > 0 && trees[end-1] != nil && trees[end-1].extra {
		end--
	}
	return trees[:end]
}

// gotoState looks up the state to transition to after reducing to sym while
// sitting in afterState, encoded (like real tree-sitter) as a SHIFT action in
// the same action table reduce's terminal lookups use (spec §4.7.2: "look up
// last_action(state, sym), which must be SHIFT or RECOVER").
func (e *Engine) gotoState(afterState StateID, sym Symbol) StateID {
	act, ok := e.table.LastAction(afterState, sym)
	if !ok {
		return StateIDError
	}
	return act.State
}

// accept finishes version v: pops every frame, scans right-to-left for the
// outermost non-extra node as root, and splices any trailing extras back
// under it (spec §4.7.6). The caller (applyAction) resolves the result via
// SelectTree against whatever an earlier accept on a sibling version already
// produced; this method only shapes one version's result.
func (e *Engine) accept(v int) *Node {
	trees := e.stack.PopAll(v)
	e.stack.RemoveVersion(v)

	rootIdx := -1
	for i := len(trees) - 1; i >= 0; i-- {
		if trees[i] != nil && !trees[i].extra {
			rootIdx = i
			break
		}
	}
	if rootIdx < 0 {
		return nil
	}

	root := trees[rootIdx]
	trailing := trees[rootIdx+1:]
	if len(trailing) > 0 {
		SetChildren(root, append(append([]*Node(nil), root.children...), trailing...))
	}
	for _, extra := range trees[:rootIdx] {
		if extra != nil {
			extra.contextParent = nil
		}
	}
	return root
}

// reduceCandidate is one (symbol, child_count) pair handleError gathers by
// scanning the full terminal alphabet at a state (spec §4.7.3's "reduce
// actions" scratch set).
type reduceCandidate struct {
	symbol     Symbol
	childCount uint8
}

// handleError implements spec §4.7.3: gather every non-extra reduce action
// the full terminal alphabet still exposes at this state, try each as a
// fragile reduce, and -- if none of them nor any shift/recover offers a
// plain way forward -- collapse down to whichever one first succeeded
// instead of carrying every equally-doomed alternative into error recovery.
// Either way, push version v (and every surviving gathered-reduce fork, each
// merged back into v) into error recovery at StateIDError. errorDepth
// tracks §4.7's error_repair_depth so repeated failures eventually give up
// rather than loop forever. Only reached once ConsumeLookahead's own action
// lookup for (state, lookahead) already came back empty, so there is no
// need to re-probe for a shift/recover here.
func (e *Engine) handleError(v int, la lookaheadTree, errorDepth *int, lastReductionVersion *int) ConsumeStatus {
	if !e.stack.Alive(v) {
		return ConsumeRemoved
	}
	state := e.stack.TopState(v)

	var candidates []reduceCandidate
	hasShiftAction := false
	for sym := Symbol(0); uint32(sym) < e.table.TerminalCount(); sym++ {
		act, ok := e.table.LastAction(state, sym)
		if !ok {
			continue
		}
		switch act.Type {
		case ParseActionReduce:
			if !act.Extra && act.ChildCount > 0 {
				candidates = append(candidates, reduceCandidate{act.Symbol, act.ChildCount})
			}
		case ParseActionShift, ParseActionRecover:
			hasShiftAction = true
		}
	}

	var forked []int
	for _, cand := range candidates {
		fv := e.stack.DuplicateVersion(v)
		fragile := ParseAction{Type: ParseActionReduce, Symbol: cand.symbol, ChildCount: cand.childCount, Fragile: true}
		if e.reduce(fv, fragile, la, nil, errorDepth, lastReductionVersion) {
			forked = append(forked, fv)
		} else {
			e.stack.RemoveVersion(fv)
		}
	}

	if len(forked) > 0 && !hasShiftAction {
		// None of the gathered reduces opens up a plain way forward either,
		// so there is nothing worth keeping every alternative around for:
		// collapse to the first one that worked (spec §4.7.3 step 3).
		e.stack.RenumberVersion(forked[0], v)
		for _, extra := range forked[1:] {
			e.stack.RemoveVersion(extra)
		}
		forked = nil
	}

	*errorDepth++
	if *errorDepth > maxErrorRepairDepth {
		e.stack.RemoveVersion(v)
		for _, extra := range forked {
			e.stack.RemoveVersion(extra)
		}
		return ConsumeRemoved
	}

	e.pushErrorFrame(v, la)
	for _, extra := range forked {
		e.pushErrorFrame(extra, la)
		e.stack.Merge(v, extra)
	}
	*lastReductionVersion = v
	return ConsumeUpdated
}

// pushErrorFrame pushes a frame at StateIDError onto version vv, wrapping
// the current lookahead in an error node when one is available (spec
// §4.7.3 step 4).
func (e *Engine) pushErrorFrame(vv int, la lookaheadTree) {
	errNode := MakeErrorNode(nil)
	if la.tree != nil {
		errNode = MakeErrorNode([]*Node{la.tree})
	}
	pos := e.stack.TopPosition(vv).Add(errNode.TotalSize())
	e.stack.Push(vv, errNode, false, StateIDError, pos)
}

// maxErrorRepairDepth bounds repeated failed repair attempts on one version
// before giving it up as unrecoverable (spec §4.7: error_repair_failed).
const maxErrorRepairDepth = 8

// repairCandidate is one reduce action from the cell that triggered a
// STOPPED_AT_ERROR pop, adjusted for however many essential trees were
// already collected above the error frame (spec §4.7.4 step 1).
type repairCandidate struct {
	symbol Symbol
	count  int // remaining essential children this candidate needs below the error frame
}

// repairMatch is one validated repair point found below an error frame.
type repairMatch struct {
	skip      int
	depth     int
	candidate repairCandidate
	nextState StateID
	frame     *stackFrame
	below     []*Node // nearest-to-error-first, per walkBelow
}

// repairSearch tracks the best repairMatch seen across a repair_error
// search: minimize skip_count, preferring the shallowest (most essential)
// candidate on a tie (spec §4.7.4).
type repairSearch struct {
	found bool
	best  repairMatch
}

func (rs *repairSearch) consider(m repairMatch) {
	if !rs.found || m.skip < rs.best.skip || (m.skip == rs.best.skip && m.depth < rs.best.depth) {
		rs.best, rs.found = m, true
	}
}

// repairError implements spec §4.7.4: given the essential trees collected
// above an error frame that a reduce just popped back into, gather every
// candidate reduction the triggering cell offered whose child_count exceeds
// what is already available above the error, then search the stack below
// the error frame for the shallowest point where one of those candidates can
// be completed -- validated by checking that candidate.symbol shifts from
// that point and that the resulting state can still accept the current
// lookahead. The discarded tail between the repair point and the error
// frame becomes a synthesized error node; a version for which no candidate
// validates anywhere below it is given up on.
func (e *Engine) repairError(v int, aboveError []*Node, la lookaheadTree, cellActions []ParseAction, lastReductionVersion *int) ConsumeStatus {
	countAboveError := essentialCount(aboveError)

	var candidates []repairCandidate
	for _, act := range cellActions {
		if act.Type == ParseActionReduce && int(act.ChildCount) > countAboveError {
			candidates = append(candidates, repairCandidate{
				symbol: act.Symbol,
				count:  int(act.ChildCount) - countAboveError,
			})
		}
	}

	errorFrame := e.stack.topFrame(v)
	if len(candidates) == 0 || errorFrame == nil {
		e.stack.RemoveVersion(v)
		return ConsumeRemoved
	}

	var search repairSearch
	e.stack.walkBelow(errorFrame, func(f *stackFrame, below []*Node, depth int) {
		treeCount := essentialCount(below)
		for _, cand := range candidates {
			if cand.count > treeCount {
				continue
			}
			skip := treeCount - cand.count
			act, ok := e.table.LastAction(f.state, cand.symbol)
			if !ok || act.Type != ParseActionShift {
				continue
			}
			if !e.table.HasAction(act.State, la.sym) {
				continue
			}
			search.consider(repairMatch{
				skip: skip, depth: depth, candidate: cand,
				nextState: act.State, frame: f, below: below,
			})
		}
	})

	if !search.found {
		e.stack.RemoveVersion(v)
		return ConsumeRemoved
	}

	m := search.best
	orderedBelow := reverseNodes(m.below)
	kept, discarded := splitEssential(orderedBelow, m.candidate.count)

	errNode := MakeErrorNode(discarded)
	children := make([]*Node, 0, len(kept)+1+len(aboveError))
	children = append(children, kept...)
	children = append(children, errNode)
	children = append(children, aboveError...)

	meta := e.table.SymbolMeta(m.candidate.symbol)
	parent := MakeNode(m.candidate.symbol, meta.Named, len(children), children, nil, m.nextState)
	parent.fragileLeft = true
	parent.fragileRight = true

	e.stack.Commit(v, PopResult{after: m.frame})
	pos := e.stack.TopPosition(v).Add(parent.TotalSize())
	e.stack.Push(v, parent, false, m.nextState, pos)
	*lastReductionVersion = v
	return ConsumeUpdated
}

// essentialCount returns how many of trees are non-extra (spec §4.7.4
// essential_count: extras never count toward a reduce's effective child
// count).
func essentialCount(trees []*Node) int {
	n := 0
	for _, t := range trees {
		if t != nil && !t.extra {
			n++
		}
	}
	return n
}

// reverseNodes returns trees in reverse order.
func reverseNodes(trees []*Node) []*Node {
	out := make([]*Node, len(trees))
	for i, t := range trees {
		out[len(trees)-1-i] = t
	}
	return out
}

// splitEssential splits trees (already in left-to-right order) into a head
// retaining exactly keep non-extra trees and a tail holding the rest, each
// extra landing on whichever side the essential tree after it lands on
// (spec §4.7.4: "split the repair-point children at repair.count").
func splitEssential(trees []*Node, keep int) (head, tail []*Node) {
	count := 0
	for i, t := range trees {
		if t == nil || !t.extra {
			if count == keep {
				return trees[:i], trees[i:]
			}
			count++
		}
	}
	return trees, nil
}

// recover implements spec §4.7.5: duplicate the errored version so the
// still-erroring branch survives alongside the newly repaired one. v takes
// the repair, shifting the lookahead at to_state as an ordinary token; dup
// stays in error recovery, shifting the same lookahead at StateIDError
// (marked extra iff the symbol is metadata-extra there) so a run of further
// bad tokens still has a version tracking them.
func (e *Engine) recover(v int, toState StateID, la lookaheadTree) {
	dup := e.stack.DuplicateVersion(v)
	pos := e.stack.TopPosition(v).Add(la.tree.TotalSize())

	e.stack.Push(v, la.tree, true, toState, pos)

	errTree := la.tree.Copy()
	errTree.extra = e.table.SymbolMeta(la.sym).Extra
	e.stack.Push(dup, errTree, true, StateIDError, pos)
}

// RecoverEOF implements spec §4.7.3/§4.7.5's EOF branch: when the lookahead
// is end-of-input while a version sits in the error state, push an empty
// error node at the builtin post-EOF-recovery state instead of waiting for a
// lookahead that will never come.
func (e *Engine) RecoverEOF(v int) {
	if !e.stack.Alive(v) {
		return
	}
	errNode := MakeErrorNode(nil)
	pos := e.stack.TopPosition(v).Add(errNode.TotalSize())
	e.stack.Push(v, errNode, false, stateAfterEOFRecovery, pos)
}
