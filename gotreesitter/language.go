// Package gotreesitter implements the core of an incremental GLR parser
// driver: given a precompiled parse table and a token source, it drives a
// graph-structured parse stack (a GSS, see stack.go) through shift/reduce/
// accept/recover actions to produce a concrete syntax tree, and can reuse
// unchanged subtrees from a previous parse of an edited input (cursor.go).
//
// The parse-table generator, the per-language lexer DFA tables, and the
// surrounding editor/tooling facade are external collaborators; this package
// only consumes their interfaces (ParseTable, LexerInterface, ExternalScanner)
// rather than implementing them.
package gotreesitter

// Symbol is a grammar symbol ID (terminal or non-terminal).
type Symbol uint16

// StateID is a parser state index.
type StateID uint16

// FieldID is a named field index.
type FieldID uint16

// SymbolError is the builtin symbol used for error nodes (spec §6: builtin
// symbols END and ERROR).
const SymbolError Symbol = 65535

// SymbolEnd is the builtin end-of-input symbol.
const SymbolEnd Symbol = 0

// StateIDError is the builtin parse state that signals "currently
// recovering from an error" (spec §6: builtin state ERROR). While the stack
// top is in this state the driver requests best-effort token boundaries
// from the lexer instead of grammar-directed ones (spec §4.2).
const StateIDError StateID = 0xFFFF

// stateAfterEOFRecovery is the builtin state pushed by recover_eof (spec
// §4.7: RECOVER branch, "push an empty error node at state 1").
const stateAfterEOFRecovery StateID = 1

// ParseActionType identifies the kind of parser action.
type ParseActionType uint8

const (
	ParseActionShift ParseActionType = iota
	ParseActionReduce
	ParseActionAccept
	ParseActionRecover
)

func (t ParseActionType) String() string {
	switch t {
	case ParseActionShift:
		return "shift"
	case ParseActionReduce:
		return "reduce"
	case ParseActionAccept:
		return "accept"
	case ParseActionRecover:
		return "recover"
	default:
		return "error"
	}
}

// ParseAction is a single parser action from the parse table (spec §4.1).
// ERROR is represented by the absence of any action for a (state, symbol)
// cell rather than by a variant of this type.
type ParseAction struct {
	Type ParseActionType

	// Shift / Recover
	State        StateID
	Extra        bool // consumed but does not change structural child count
	CanHideSplit bool // may obscure an ambiguity; blocks cursor reuse

	// Reduce
	Symbol            Symbol
	ChildCount        uint8
	Fragile           bool
	DynamicPrecedence int16
}

// ParseActionEntry is the set of actions enabled for one (state, symbol)
// cell. GLR forks when it holds more than one action.
type ParseActionEntry struct {
	Actions []ParseAction
}

// LexTransition maps a character range to a next DFA state.
type LexTransition struct {
	Lo, Hi    rune
	NextState int
}

// LexState is one state in the table-driven lexer DFA.
type LexState struct {
	AcceptToken Symbol
	Skip        bool
	Fragile     bool // tok.IsFragile (spec §4.2): this accept depended on maximal-munch/lookahead choices that an edit could resolve differently
	Transitions []LexTransition
	Default     int // -1 if none
	EOF         int // -1 if none
}

// LexMode maps a parser state to the lex state the DFA should start in.
type LexMode struct {
	LexState uint16
}

// SymbolMetadata holds display/grammar information about a symbol.
type SymbolMetadata struct {
	Name       string
	Visible    bool
	Named      bool
	Extra      bool // whitespace/comment-like: may appear anywhere (spec §3, §GLOSSARY)
	Structural bool // grammar metadata only; reduce counts every non-extra child whether or not it is set
	Supertype  bool
}

// FieldMapEntry maps a child index to a field name within one production.
type FieldMapEntry struct {
	FieldID    FieldID
	ChildIndex uint8
	Inherited  bool
}

// ExternalScanner is the interface for language-specific external scanners
// (indent tracking, template literals, regex-vs-division disambiguation).
// Parse calls Create at its start and Destroy at its end; it does not call
// Serialize or Deserialize, so no scanner state is carried from one parse
// to the next. Scan is invoked at every lookahead position that the reuse
// cursor does not cover, ahead of the DFA lexer, in both ordinary and
// error-mode lexing.
type ExternalScanner interface {
	Create() interface{}
	Destroy(payload interface{})
	Serialize(payload interface{}, buf []byte) int
	Deserialize(payload interface{}, buf []byte)
	Scan(payload interface{}, lexer *ExternalLexer, validSymbols []bool) bool
}

type tableKey struct {
	state StateID
	sym   Symbol
}

// ParseTable is the read-only lookup the driver consults for (state,
// symbol) actions and per-state lex configuration (spec §4.1). *Language
// implements it directly; it is read-only for the life of any Parser built
// from it and may be shared across parser instances (spec §5).
type ParseTable interface {
	Actions(state StateID, sym Symbol) []ParseAction
	LastAction(state StateID, sym Symbol) (ParseAction, bool)
	HasAction(state StateID, sym Symbol) bool
	LexStateFor(state StateID) uint16
	SymbolMeta(sym Symbol) SymbolMetadata
	AllowsExtra(state StateID, sym Symbol) bool
	TerminalCount() uint32
}

// Language holds all data needed to parse one grammar: parse table, lex
// tables, and symbol metadata.
type Language struct {
	Name string

	SymbolCount uint32
	TokenCount  uint32 // symbols < TokenCount are terminals

	SymbolNames    []string
	SymbolMetadata []SymbolMetadata
	FieldNames     []string // index 0 is ""

	// actions holds, for every (state, symbol) cell that has one or more
	// enabled actions, the ordered action list. A missing key means ERROR.
	// Both terminal lookahead cells (SHIFT/REDUCE/ACCEPT/RECOVER) and
	// non-terminal GOTO cells (encoded as a single SHIFT to the goto
	// state) live in this one table -- this is how real tree-sitter
	// encodes GOTOs too, and it keeps reduce's "look up last_action(state,
	// sym), which must be SHIFT or RECOVER" rule (spec §4.7.2) uniform
	// across terminals and non-terminals. The parse-table generator that
	// would populate this from a grammar is out of scope (spec §1); tests
	// and callers build it by hand via SetActions.
	actions map[tableKey]ParseActionEntry

	LexModes  []LexMode  // state -> lex state id
	LexStates []LexState // main lexer DFA; index 0 reserved for error-mode scanning

	FieldMapSlices  [][2]uint16
	FieldMapEntries []FieldMapEntry
	AliasSequences  [][]Symbol

	ExternalScanner ExternalScanner

	// InitialState is the parser's start state. StateIDError is always
	// reserved for error recovery and must never be used as a grammar
	// state.
	InitialState StateID
}

// NewLanguage creates an empty Language ready to have its action table
// populated via SetActions.
func NewLanguage(name string) *Language {
	return &Language{Name: name, actions: make(map[tableKey]ParseActionEntry)}
}

// SetActions installs the action list for one (state, symbol) cell.
func (l *Language) SetActions(state StateID, sym Symbol, actions ...ParseAction) {
	if l.actions == nil {
		l.actions = make(map[tableKey]ParseActionEntry)
	}
	l.actions[tableKey{state, sym}] = ParseActionEntry{Actions: actions}
}

// Actions returns the ordered action list for (state, symbol), or nil if
// there is none (an implicit ERROR action, spec §4.1).
func (l *Language) Actions(state StateID, sym Symbol) []ParseAction {
	e, ok := l.actions[tableKey{state, sym}]
	if !ok {
		return nil
	}
	return e.Actions
}

// LastAction returns the final action in the (state, symbol) cell, used
// whenever the spec calls for "the last action" rather than the full
// ambiguity-enabling list (reduce's GOTO lookup, repair validation, ...).
func (l *Language) LastAction(state StateID, sym Symbol) (ParseAction, bool) {
	acts := l.Actions(state, sym)
	if len(acts) == 0 {
		return ParseAction{}, false
	}
	return acts[len(acts)-1], true
}

// HasAction reports whether any action is defined for (state, symbol).
func (l *Language) HasAction(state StateID, sym Symbol) bool {
	_, ok := l.actions[tableKey{state, sym}]
	return ok
}

// LexStateFor returns the lex state id a state should start lexing in.
func (l *Language) LexStateFor(state StateID) uint16 {
	if int(state) < len(l.LexModes) {
		return l.LexModes[state].LexState
	}
	return 0
}

// SymbolMeta returns the metadata for a symbol, or the zero value if the
// symbol is out of range.
func (l *Language) SymbolMeta(sym Symbol) SymbolMetadata {
	if int(sym) < len(l.SymbolMetadata) {
		return l.SymbolMetadata[sym]
	}
	return SymbolMetadata{}
}

// IsNamedSymbol reports whether sym is a named grammar symbol.
func (l *Language) IsNamedSymbol(sym Symbol) bool {
	return l.SymbolMeta(sym).Named
}

// IsExtraSymbol reports whether sym is an extra (whitespace/comment-like)
// symbol per the grammar's own metadata.
func (l *Language) IsExtraSymbol(sym Symbol) bool {
	return l.SymbolMeta(sym).Extra
}

// TerminalCount returns how many symbols are terminals (spec §6's alphabet:
// handle_error scans every terminal at a state when gathering the reduce
// actions still legal there).
func (l *Language) TerminalCount() uint32 { return l.TokenCount }

// AllowsExtra reports whether any action for (state, sym) marks its shift
// as extra; used by the cursor's can_reuse (spec §4.5).
func (l *Language) AllowsExtra(state StateID, sym Symbol) bool {
	for _, act := range l.Actions(state, sym) {
		if act.Extra {
			return true
		}
	}
	return false
}

// ValidSymbolsAt returns a TokenCount-length mask of which terminals have
// any enabled action in state, the external scanner's validSymbols argument
// (spec §4.2: external scanners decide what to look for based on what the
// grammar could possibly shift next).
func (l *Language) ValidSymbolsAt(state StateID) []bool {
	valid := make([]bool, l.TokenCount)
	for sym := range valid {
		if l.HasAction(state, Symbol(sym)) {
			valid[sym] = true
		}
	}
	return valid
}

// SymbolByName returns the first symbol whose name matches, scanning all
// symbols (terminal and non-terminal).
func (l *Language) SymbolByName(name string) (Symbol, bool) {
	for i, n := range l.SymbolNames {
		if n == name {
			return Symbol(i), true
		}
	}
	return 0, false
}

// TokenSymbolsByName returns every terminal symbol (symbol < TokenCount)
// whose name matches.
func (l *Language) TokenSymbolsByName(name string) []Symbol {
	var out []Symbol
	for i, n := range l.SymbolNames {
		if uint32(i) >= l.TokenCount {
			break
		}
		if n == name {
			out = append(out, Symbol(i))
		}
	}
	return out
}
