package gotreesitter

// Symbols for the built-in arithmetic grammar: expr -> NUM | expr PLUS NUM |
// expr MINUS NUM, left-associative. This mirrors the teacher's own
// hand-built test grammar convention (one LR table authored directly via
// SetActions rather than generated), kept here as an exported reference
// grammar for cmd/glrtrace and for tests that want a slightly richer
// left-recursive example than the two-token "a b" grammar.
const (
	ArithEnd   Symbol = 0
	ArithNum   Symbol = 1
	ArithPlus  Symbol = 2
	ArithMinus Symbol = 3
	ArithExpr  Symbol = 4
)

func arithmeticLexStates() []LexState {
	return []LexState{
		{ // 0: start
			Transitions: []LexTransition{
				{Lo: '0', Hi: '9', NextState: 1},
				{Lo: '+', Hi: '+', NextState: 2},
				{Lo: '-', Hi: '-', NextState: 3},
				{Lo: ' ', Hi: ' ', NextState: 4},
			},
			Default: -1,
		},
		{ // 1: accumulating digits (longest match wins via the DFA's maximal munch)
			AcceptToken: ArithNum,
			Transitions: []LexTransition{
				{Lo: '0', Hi: '9', NextState: 1},
			},
			Default: -1,
		},
		{AcceptToken: ArithPlus, Default: -1},
		{AcceptToken: ArithMinus, Default: -1},
		{ // 4: skip whitespace
			Skip: true,
			Transitions: []LexTransition{
				{Lo: ' ', Hi: ' ', NextState: 4},
			},
			Default: -1,
		},
	}
}

// arithNumShifted is the state reached right after shifting a NUM that
// begins a fresh expr. It deliberately avoids state id 1: that id is
// reserved by the spec as the builtin post-EOF-recovery state
// (stateAfterEOFRecovery), and a real grammar state sharing its number would
// collide with whatever recover_eof pushes there once an errored version
// runs off the end of input.
const arithNumShifted StateID = 7

// ArithmeticLanguage builds the hand-authored parse table for
// expr -> NUM | expr PLUS NUM | expr MINUS NUM (spec §4.1's GOTO-as-SHIFT
// encoding: the reduce-to-expr goto cells are SetActions'd as SHIFT, exactly
// like every other cell in the table).
func ArithmeticLanguage() *Language {
	lang := NewLanguage("arithmetic")
	lang.TokenCount = 4
	lang.SymbolNames = []string{"end", "num", "plus", "minus", "expr"}
	lang.SymbolMetadata = []SymbolMetadata{
		{},
		{Named: true},
		{Named: true},
		{Named: true},
		{Named: true, Structural: true},
	}
	lang.InitialState = 0
	lang.LexStates = arithmeticLexStates()
	lang.LexModes = make([]LexMode, arithNumShifted+1)

	// state 0: start, expecting a NUM to begin an expr.
	lang.SetActions(0, ArithNum, ParseAction{Type: ParseActionShift, State: arithNumShifted})
	// arithNumShifted: NUM shifted, not yet reduced; any of +, -, end
	// triggers the single-child reduce.
	lang.SetActions(arithNumShifted, ArithPlus, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 1})
	lang.SetActions(arithNumShifted, ArithMinus, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 1})
	lang.SetActions(arithNumShifted, ArithEnd, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 1})
	// GOTO(0, expr) = state 2, encoded as a shift; reached both from the
	// initial NUM reduce and from every later expr-PLUS/MINUS-NUM reduce,
	// since both pop back down to state 0.
	lang.SetActions(0, ArithExpr, ParseAction{Type: ParseActionShift, State: 2})

	// state 2: a complete expr is on top; extend it or accept.
	lang.SetActions(2, ArithPlus, ParseAction{Type: ParseActionShift, State: 3})
	lang.SetActions(2, ArithMinus, ParseAction{Type: ParseActionShift, State: 4})
	lang.SetActions(2, ArithEnd, ParseAction{Type: ParseActionAccept})

	// state 3: PLUS shifted, expecting NUM.
	lang.SetActions(3, ArithNum, ParseAction{Type: ParseActionShift, State: 5})
	// state 5: NUM shifted after PLUS; reduce expr PLUS NUM -> expr (3 children).
	lang.SetActions(5, ArithPlus, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3})
	lang.SetActions(5, ArithMinus, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3})
	lang.SetActions(5, ArithEnd, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3})

	// state 4: MINUS shifted, expecting NUM.
	lang.SetActions(4, ArithNum, ParseAction{Type: ParseActionShift, State: 6})
	// state 6: NUM shifted after MINUS; reduce expr MINUS NUM -> expr.
	lang.SetActions(6, ArithPlus, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3})
	lang.SetActions(6, ArithMinus, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3})
	lang.SetActions(6, ArithEnd, ParseAction{Type: ParseActionReduce, Symbol: ArithExpr, ChildCount: 3})

	// StateIDError: a NUM while recovering looks like the start of a fresh
	// expr, so recover back into ordinary parsing the same way state 0
	// would treat it (spec §4.7 RECOVER branch / §4.7.5 recover).
	lang.SetActions(StateIDError, ArithNum, ParseAction{Type: ParseActionRecover, State: arithNumShifted})

	return lang
}
