package gotreesitter

import "testing"

// Symbols for the miniature "a b" grammar used by the driver/engine tests:
// S -> a b, END marks end of input.
const (
	miniEnd Symbol = 0
	miniA   Symbol = 1
	miniB   Symbol = 2
	miniS   Symbol = 3
)

func miniLexStates() []LexState {
	return []LexState{
		{ // state 0: start
			Transitions: []LexTransition{
				{Lo: 'a', Hi: 'a', NextState: 1},
				{Lo: 'b', Hi: 'b', NextState: 2},
				{Lo: ' ', Hi: ' ', NextState: 3},
			},
			Default: -1,
		},
		{AcceptToken: miniA, Default: -1},
		{AcceptToken: miniB, Default: -1},
		{ // state 3: skip whitespace
			Skip: true,
			Transitions: []LexTransition{
				{Lo: ' ', Hi: ' ', NextState: 3},
			},
			Default: -1,
		},
	}
}

// miniLanguage builds the parse table for S -> a b (spec §4.1: GOTO cells
// are encoded as SHIFT actions in the same table terminal lookahead uses).
func miniLanguage() *Language {
	lang := NewLanguage("mini")
	lang.TokenCount = 3
	lang.SymbolNames = []string{"end", "a", "b", "S"}
	lang.SymbolMetadata = []SymbolMetadata{
		{},
		{Named: true},
		{Named: true},
		{Named: true, Structural: true},
	}
	lang.InitialState = 0
	lang.LexStates = miniLexStates()
	lang.LexModes = []LexMode{{LexState: 0}, {LexState: 0}, {LexState: 0}, {LexState: 0}}

	lang.SetActions(0, miniA, ParseAction{Type: ParseActionShift, State: 1})
	lang.SetActions(1, miniB, ParseAction{Type: ParseActionShift, State: 2})
	lang.SetActions(2, miniEnd, ParseAction{Type: ParseActionReduce, Symbol: miniS, ChildCount: 2})
	lang.SetActions(0, miniS, ParseAction{Type: ParseActionShift, State: 3})
	lang.SetActions(3, miniEnd, ParseAction{Type: ParseActionAccept})

	return lang
}

func TestParseShiftReduceAccept(t *testing.T) {
	p := NewParser(miniLanguage())
	tree, err := p.Parse([]byte("a b"), nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	root := tree.RootNode()
	if root.Symbol() != miniS {
		t.Fatalf("root symbol = %d, want S (%d)", root.Symbol(), miniS)
	}
	if root.ChildCount() != 2 {
		t.Fatalf("root child count = %d, want 2", root.ChildCount())
	}
	if root.Child(0).Symbol() != miniA || root.Child(1).Symbol() != miniB {
		t.Fatalf("children = [%d %d], want [a b]", root.Child(0).Symbol(), root.Child(1).Symbol())
	}

	// spec §8 Coverage: the finished tree's total_size must equal the input
	// length in chars (and, for ASCII input, bytes too).
	if got := root.TotalChars(); got != uint32(len("a b")) {
		t.Fatalf("TotalChars = %d, want %d", got, len("a b"))
	}
}

func TestParseFailsWithoutAccept(t *testing.T) {
	p := NewParser(miniLanguage())
	// "b a" never shifts a first, so the grammar has no path to ACCEPT.
	_, err := p.Parse([]byte("b a"), nil)
	if err != ErrParseFailed {
		t.Fatalf("err = %v, want ErrParseFailed", err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := NewParser(miniLanguage())
	t1, err1 := p.Parse([]byte("a b"), nil)
	t2, err2 := p.Parse([]byte("a b"), nil)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if compare(t1.RootNode(), t2.RootNode()) != 0 {
		t.Fatalf("two parses of the same input produced different trees (spec §8 Determinism)")
	}
}
