package gotreesitter

import "testing"

// TestEngineReduceRepairsAcrossErrorFrame grounds review scenario 6
// ("1 * + 2": a stray token in the middle of an expr gets wrapped into an
// error node while the surrounding expr PLUS NUM reduction still completes).
// The stack is hand-built to put an already-synthesized error frame directly
// in the path of a 3-child reduce, forcing reduce into the
// PopStoppedAtError/repairError branch (spec §4.7.2 + §4.7.4) rather than
// letting the slice pass through uninspected.
func TestEngineReduceRepairsAcrossErrorFrame(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()
	e := NewEngine(ArithmeticLanguage(), s)

	exprNum1 := MakeNode(ArithExpr, true, 1, []*Node{leaf(ArithNum)}, nil, 2)
	s.Push(0, exprNum1, false, 2, Length{Chars: 1, Bytes: 1})

	plusTok := leaf(ArithPlus)
	s.Push(0, plusTok, true, 3, Length{Chars: 2, Bytes: 2})

	strayNum := leaf(ArithNum)
	s.Push(0, strayNum, false, 99, Length{Chars: 3, Bytes: 3})

	errNode := MakeErrorNode([]*Node{leaf(ArithPlus)})
	s.Push(0, errNode, false, StateIDError, Length{Chars: 4, Bytes: 4})

	num5 := leaf(ArithNum)
	s.Push(0, num5, true, 5, Length{Chars: 5, Bytes: 5})

	act := ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3}
	la := lookaheadTree{sym: ArithEnd}
	ok := e.reduce(0, act, la, []ParseAction{act}, new(int), new(int))
	if !ok {
		t.Fatalf("reduce should repair across the error frame and succeed")
	}

	if s.TopState(0) != 2 {
		t.Fatalf("TopState after repair = %d, want 2 (the validated repair point's shift target)", s.TopState(0))
	}

	top := s.TopTree(0)
	if top.Symbol() != ArithExpr || top.ChildCount() != 4 {
		t.Fatalf("repaired node = %+v, want expr with 4 children (kept, kept, errNode, aboveError)", top)
	}
	if top.Child(0) != exprNum1 || top.Child(1) != plusTok {
		t.Fatalf("repaired node should keep the essential trees below the error frame in order")
	}
	if top.Child(2).Symbol() != SymbolError || top.Child(2).Child(0) != strayNum {
		t.Fatalf("repaired node's 3rd child should be an error node wrapping the discarded stray token")
	}
	if top.Child(3) != num5 {
		t.Fatalf("repaired node's last child should be the essential tree collected above the error frame")
	}
}

// TestEngineReduceGivesUpWhenNoRepairValidates covers the other half of
// repair_error: when nothing below the error frame can complete any
// candidate reduction, the version is simply removed rather than left
// dangling.
func TestEngineReduceGivesUpWhenNoRepairValidates(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()
	e := NewEngine(ArithmeticLanguage(), s)

	// Only the stack's root frame lies below the error frame: walkBelow
	// visits just that frame, with no trees collected, so no candidate has
	// enough essential trees to validate.
	errNode := MakeErrorNode([]*Node{leaf(ArithPlus)})
	s.Push(0, errNode, false, StateIDError, Length{Chars: 1, Bytes: 1})
	num := leaf(ArithNum)
	s.Push(0, num, true, 5, Length{Chars: 2, Bytes: 2})

	act := ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3}
	la := lookaheadTree{sym: ArithEnd}
	ok := e.reduce(0, act, la, []ParseAction{act}, new(int), new(int))
	if ok {
		t.Fatalf("reduce should report failure when no repair point validates")
	}
	if s.Alive(0) {
		t.Fatalf("a version with no valid repair should be removed, not left alive")
	}
}

// TestEngineHandleErrorCollapsesFragileForks grounds review comment (c):
// handle_error gathers every reduce action the full terminal alphabet still
// exposes at the errored state, tries each one as a fragile reduce, and --
// since neither candidate here opens a plain shift/recover either -- collapses
// down to whichever one succeeded first instead of keeping every
// equally-doomed alternative alive (spec §4.7.3 step 3).
func TestEngineHandleErrorCollapsesFragileForks(t *testing.T) {
	const (
		heEnd Symbol = 0
		heA   Symbol = 1
		heB   Symbol = 2
		heS   Symbol = 3
		heT   Symbol = 4
	)
	lang := NewLanguage("handle-error-probe")
	lang.TokenCount = 3
	lang.SymbolMetadata = []SymbolMetadata{{}, {Named: true}, {Named: true}, {Named: true}, {Named: true}}
	// State 5 offers two reduce candidates and no shift/recover anywhere in
	// the alphabet, so handle_error has nothing "plain" to prefer either one.
	lang.SetActions(5, heA, ParseAction{Type: ParseActionReduce, Symbol: heS, ChildCount: 1})
	lang.SetActions(5, heB, ParseAction{Type: ParseActionReduce, Symbol: heT, ChildCount: 1})
	// GOTO targets for the two possible reductions, so each fragile reduce
	// has somewhere to land and counts as "succeeded".
	lang.SetActions(0, heS, ParseAction{Type: ParseActionShift, State: 10})
	lang.SetActions(0, heT, ParseAction{Type: ParseActionShift, State: 11})

	s := NewStack(0, false)
	defer s.Release()
	e := NewEngine(lang, s)

	s.Push(0, leaf(heA), true, 5, Length{Chars: 1, Bytes: 1})

	la := lookaheadTree{tree: leaf(heB), sym: heB}
	errorDepth := new(int)
	status := e.handleError(0, la, errorDepth, new(int))
	if status != ConsumeUpdated {
		t.Fatalf("handleError status = %v, want ConsumeUpdated", status)
	}

	if *errorDepth != 1 {
		t.Fatalf("errorDepth = %d, want 1", *errorDepth)
	}
	if s.VersionCount() != 3 {
		t.Fatalf("VersionCount = %d, want 3 (v plus the two forked-then-collapsed slots)", s.VersionCount())
	}
	if s.Alive(1) || s.Alive(2) {
		t.Fatalf("both forked versions should have been vacated by the no-shift-action collapse")
	}
	if !s.Alive(0) {
		t.Fatalf("version 0 should survive, holding the first fragile reduce's result")
	}

	if s.TopState(0) != StateIDError {
		t.Fatalf("TopState(0) = %d, want StateIDError after the collapsed version is pushed into recovery", s.TopState(0))
	}
	below := s.topFrame(0).preds[0]
	if below.tree.Symbol() != heS {
		t.Fatalf("below the synthesized error frame should sit the first (heS) fragile reduce's node, got symbol %d", below.tree.Symbol())
	}
	if below.state != 10 {
		t.Fatalf("below frame state = %d, want 10 (heS's GOTO target)", below.state)
	}
}

// TestEngineRecoverKeepsErrorBranchAlive grounds the §4.7.5 recover fix made
// this session and scenario 2's "1++2" shape: v takes the repair and
// continues as an ordinary shift at to_state, while the duplicated version
// stays in error recovery at StateIDError so a further run of bad tokens is
// still tracked.
func TestEngineRecoverKeepsErrorBranchAlive(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()
	e := NewEngine(ArithmeticLanguage(), s)

	s.Push(0, MakeErrorNode([]*Node{leaf(ArithPlus)}), false, StateIDError, Length{Chars: 1, Bytes: 1})

	numTok := leaf(ArithNum)
	la := lookaheadTree{tree: numTok, sym: ArithNum}
	before := s.VersionCount()
	e.recover(0, arithNumShifted, la)

	if s.VersionCount() != before+1 {
		t.Fatalf("recover should duplicate the version, got VersionCount = %d", s.VersionCount())
	}
	dup := before

	if s.TopState(0) != arithNumShifted {
		t.Fatalf("v's TopState = %d, want arithNumShifted (the repair's to_state)", s.TopState(0))
	}
	if !s.TopPending(0) || s.TopTree(0) != numTok {
		t.Fatalf("v should shift the lookahead at to_state as an ordinary pending token")
	}

	if s.TopState(dup) != StateIDError {
		t.Fatalf("dup's TopState = %d, want StateIDError: the errored branch must stay in recovery", s.TopState(dup))
	}
	if !s.TopPending(dup) {
		t.Fatalf("dup's pushed frame should be pending")
	}
	if s.TopTree(dup) == numTok {
		t.Fatalf("dup must shift its own copy of the lookahead, not the same *Node v shifted")
	}
	if s.TopTree(dup).Symbol() != ArithNum {
		t.Fatalf("dup's tree should carry the same symbol as the lookahead")
	}
}

// TestEngineRecoverEOFPushesEmptyErrorNode grounds scenario 3's
// "(1+2" -> recover_eof path (spec §4.7.3/§4.7.5's EOF branch): a version
// still sitting in error recovery when input runs out gets an empty error
// node pushed at the builtin post-EOF-recovery state instead of waiting
// forever for a lookahead that will never arrive.
func TestEngineRecoverEOFPushesEmptyErrorNode(t *testing.T) {
	s := NewStack(0, false)
	defer s.Release()
	e := NewEngine(ArithmeticLanguage(), s)

	s.Push(0, MakeErrorNode([]*Node{leaf(ArithPlus)}), false, StateIDError, Length{Chars: 1, Bytes: 1})

	e.RecoverEOF(0)

	if s.TopState(0) != stateAfterEOFRecovery {
		t.Fatalf("TopState after RecoverEOF = %d, want stateAfterEOFRecovery", s.TopState(0))
	}
	top := s.TopTree(0)
	if top == nil || top.Symbol() != SymbolError || top.ChildCount() != 0 {
		t.Fatalf("RecoverEOF should push an empty error node, got %+v", top)
	}
	if s.TopPending(0) {
		t.Fatalf("RecoverEOF's pushed frame should not be pending")
	}
}
