package gotreesitter

import (
	"unicode/utf8"
	"unsafe"
)

// Point is a row/column position in source text.
type Point struct {
	Row    uint32
	Column uint32
}

// Length is a (chars, bytes) pair, used for node/token sizes and padding
// (spec §3). Chars and Bytes move together for ASCII input and diverge for
// multi-byte UTF-8 runes.
type Length struct {
	Chars uint32
	Bytes uint32
}

// Add returns the element-wise sum of two lengths.
func (l Length) Add(o Length) Length {
	return Length{Chars: l.Chars + o.Chars, Bytes: l.Bytes + o.Bytes}
}

// Sub returns the element-wise difference of two lengths.
func (l Length) Sub(o Length) Length {
	return Length{Chars: l.Chars - o.Chars, Bytes: l.Bytes - o.Bytes}
}

// Token is a lexed token with position info, returned by Finish (spec §4.2).
type Token struct {
	Symbol     Symbol
	Text       string
	Padding    Length
	Size       Length
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	IsFragile  bool
	LexState   uint16 // the DFA state id that accepted this token; meaningful only when IsFragile

	// FirstUnexpectedCharacter is set on error tokens: the rune the lexer
	// could not match against any transition (spec §3, §4.2).
	FirstUnexpectedCharacter rune
	IsError                  bool
}

func bytesToStringNoCopy(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// LexerInterface is the positioned lexical scanner the driver calls (spec
// §4.2 / §6). Start positions the lexer at the current cursor for the given
// lex state; Finish consumes one token (or, in error mode, performs
// best-effort boundary discovery); Reset repositions to an absolute
// (chars, bytes) offset, used when the cursor or a repaired reduce needs to
// rewind the input position.
type LexerInterface interface {
	Start(state uint16, errorMode bool)
	Finish() Token
	Reset(pos Length, point Point)
}

// Lexer tokenizes source text using a table-driven DFA. This is the
// concrete, in-process implementation of LexerInterface; languages whose
// lexer cannot be expressed as a DFA (e.g. bridging to a host-language
// scanner) provide their own.
type Lexer struct {
	states []LexState
	source []byte

	pos   int
	chars uint32
	row   uint32
	col   uint32

	startState uint16
	errorMode  bool
}

// NewLexer creates a new Lexer that tokenizes source using the given DFA
// state table. Index 0 of states is reserved for error-mode scanning (spec
// §4.2: "the driver calls the lexer with a special error lex state of 0").
func NewLexer(states []LexState, source []byte) *Lexer {
	return &Lexer{states: states, source: source}
}

// Start positions the lexer at its current cursor for the given lex state.
func (l *Lexer) Start(state uint16, errorMode bool) {
	l.startState = state
	l.errorMode = errorMode
}

// Reset repositions the lexer to an absolute (chars, bytes) offset.
func (l *Lexer) Reset(pos Length, point Point) {
	l.pos = int(pos.Bytes)
	l.chars = pos.Chars
	l.row = point.Row
	l.col = point.Column
}

// Finish lexes the next token from the position set by Start/Reset. In
// error mode it skips whitespace the same as normal mode but, on failing to
// match any DFA transition, emits an error token covering exactly one rune
// instead of silently skipping it (spec §4.2, §7).
func (l *Lexer) Finish() Token {
	state := l.startState
	if l.errorMode {
		state = 0
	}
	padByte, padChars := uint32(l.pos), l.chars

	for {
		if l.pos >= len(l.source) {
			tok := l.eofToken()
			tok.Padding = Length{Chars: l.chars - padChars, Bytes: uint32(l.pos) - padByte}
			return tok
		}

		startByte := uint32(l.pos)
		startChars := l.chars
		startRow, startCol := l.row, l.col

		tok, ok := l.scan(state, startByte, startChars, startRow, startCol)
		if ok {
			if tok.Symbol == 0 && !tok.IsError {
				if l.pos <= int(startByte) {
					l.skipOneRune()
				}
				continue
			}
			tok.Padding = Length{Chars: startChars - padChars, Bytes: startByte - padByte}
			return tok
		}

		if l.errorMode {
			tok := l.errorToken(startByte, startChars, startRow, startCol)
			tok.Padding = Length{Chars: startChars - padChars, Bytes: startByte - padByte}
			return tok
		}
		l.skipOneRune()
	}
}

func (l *Lexer) eofToken() Token {
	pt := Point{Row: l.row, Column: l.col}
	return Token{
		Symbol:     SymbolEnd,
		StartByte:  uint32(l.pos),
		EndByte:    uint32(l.pos),
		StartPoint: pt,
		EndPoint:   pt,
	}
}

func (l *Lexer) errorToken(startByte, startChars uint32, startRow, startCol uint32) Token {
	r, size := utf8.DecodeRune(l.source[l.pos:])
	l.pos += size
	l.chars++
	if r == '\n' {
		l.row++
		l.col = 0
	} else {
		l.col++
	}
	return Token{
		Symbol:                   SymbolError,
		Text:                     bytesToStringNoCopy(l.source[startByte:l.pos]),
		StartByte:                startByte,
		EndByte:                  uint32(l.pos),
		StartPoint:               Point{Row: startRow, Column: startCol},
		EndPoint:                 Point{Row: l.row, Column: l.col},
		Size:                     Length{Chars: l.chars - startChars, Bytes: uint32(l.pos) - startByte},
		IsError:                  true,
		FirstUnexpectedCharacter: r,
	}
}

// scan runs the DFA from the given start state. It returns a token and true
// on an accepting match (zero-Symbol means "skip this span"); false if no
// accepting state was ever reached.
func (l *Lexer) scan(startState uint16, startByte, startChars uint32, startRow, startCol uint32) (Token, bool) {
	curState := int(startState)
	if curState >= len(l.states) {
		return Token{}, false
	}
	scanPos := int(startByte)
	scanChars := startChars
	scanRow, scanCol := startRow, startCol

	acceptPos := -1
	acceptChars := startChars
	acceptRow, acceptCol := startRow, startCol
	acceptSymbol := Symbol(0)
	acceptSkip := false
	acceptFragile := false
	acceptState := uint16(curState)

	st := &l.states[curState]
	if st.AcceptToken > 0 || st.Skip {
		acceptPos, acceptChars, acceptRow, acceptCol = scanPos, scanChars, scanRow, scanCol
		acceptSymbol, acceptSkip, acceptFragile = st.AcceptToken, st.Skip, st.Fragile
		acceptState = uint16(curState)
	}

	for scanPos < len(l.source) {
		r, size := utf8.DecodeRune(l.source[scanPos:])

		nextState := -1
		st = &l.states[curState]
		for i := range st.Transitions {
			tr := &st.Transitions[i]
			if r >= tr.Lo && r <= tr.Hi {
				nextState = tr.NextState
				break
			}
		}
		if nextState < 0 && st.Default >= 0 {
			nextState = st.Default
		}
		if nextState < 0 {
			break
		}

		scanPos += size
		scanChars++
		if r == '\n' {
			scanRow++
			scanCol = 0
		} else {
			scanCol++
		}

		curState = nextState
		ns := &l.states[curState]
		if ns.AcceptToken > 0 || ns.Skip {
			acceptPos, acceptChars, acceptRow, acceptCol = scanPos, scanChars, scanRow, scanCol
			acceptSymbol, acceptSkip, acceptFragile = ns.AcceptToken, ns.Skip, ns.Fragile
			acceptState = uint16(curState)
		}
	}

	if acceptPos < 0 {
		return Token{}, false
	}

	l.pos, l.chars, l.row, l.col = acceptPos, acceptChars, acceptRow, acceptCol

	size := Length{Chars: acceptChars - startChars, Bytes: uint32(acceptPos) - startByte}
	if acceptSkip {
		return Token{
			StartByte:  startByte,
			EndByte:    uint32(acceptPos),
			StartPoint: Point{Row: startRow, Column: startCol},
			EndPoint:   Point{Row: acceptRow, Column: acceptCol},
			Size:       size,
		}, true
	}

	return Token{
		Symbol:     acceptSymbol,
		Text:       bytesToStringNoCopy(l.source[startByte:acceptPos]),
		StartByte:  startByte,
		EndByte:    uint32(acceptPos),
		StartPoint: Point{Row: startRow, Column: startCol},
		EndPoint:   Point{Row: acceptRow, Column: acceptCol},
		Size:       size,
		IsFragile:  acceptFragile,
		LexState:   acceptState,
	}, true
}

func (l *Lexer) skipOneRune() {
	if l.pos >= len(l.source) {
		return
	}
	r, size := utf8.DecodeRune(l.source[l.pos:])
	l.pos += size
	l.chars++
	if r == '\n' {
		l.row++
		l.col = 0
	} else {
		l.col++
	}
}
