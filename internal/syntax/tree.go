package syntax

// Diagnostic is a parser-synthesized diagnostic (spec.md §4.3: "parse-stage
// diagnostics").
type Diagnostic struct {
	Start, End int // byte offsets
	Message    string
}

// Tree is the result of parsing a buffer: its tokens, recovered parse
// diagnostics, and the source it was derived from. Two Trees produced from
// identical source bytes are always token-for-token and
// diagnostic-for-diagnostic identical (spec.md §4.2: "indistinguishable
// from a full parse for every observable property").
type Tree struct {
	Source []byte
	Tokens []Token

	// lookahead records, for each token index, how many trivia bytes of
	// lookahead were required to disambiguate it from its neighbors. This
	// is opaque to callers; parsecache threads it through incremental
	// reparse calls unchanged, matching spec.md §4.2's "tree with its
	// lookahead ranges".
	Lookahead []LookaheadRange

	Diagnostics []Diagnostic
}

// LookaheadRange records the trivia span consulted to resolve a single
// token boundary.
type LookaheadRange struct {
	Start, End int
}

// Parse fully tokenizes src and computes parse-stage diagnostics. It never
// fails: malformed input yields tokens plus diagnostics, never an error,
// matching the parser's role as an always-available fallback when the
// analysis daemon is unreachable (spec.md §4.3).
func Parse(src []byte) *Tree {
	tokens := lex(src)
	return &Tree{
		Source:      src,
		Tokens:      tokens,
		Lookahead:   computeLookahead(tokens),
		Diagnostics: diagnose(src, tokens),
	}
}

func computeLookahead(tokens []Token) []LookaheadRange {
	ranges := make([]LookaheadRange, len(tokens))
	for i, t := range tokens {
		ranges[i] = LookaheadRange{Start: t.TriviaStart, End: t.Start}
	}
	return ranges
}

// TokenAt returns the token whose [TriviaStart, End) span contains offset,
// preferring the token that offset falls within (not merely its trivia)
// when two are adjacent. An offset at or past the final EOF token's Start
// yields that EOF token; false is returned only when no token reaches
// offset (e.g. a negative offset).
func (t *Tree) TokenAt(offset int) (Token, bool) {
	for i, tok := range t.Tokens {
		if offset >= tok.TriviaStart && offset < tok.End {
			return tok, true
		}
		// Exactly at a token boundary: prefer the following token, since
		// CoordinateAdjuster cares about "within or immediately after".
		if offset == tok.End && i+1 < len(t.Tokens) {
			continue
		}
	}
	if len(t.Tokens) > 0 {
		last := t.Tokens[len(t.Tokens)-1]
		if offset >= last.Start {
			return last, true
		}
	}
	return Token{}, false
}

// TokenEndingAt returns the token whose Start..End span ends exactly at
// offset, i.e. the token the cursor is immediately after.
func (t *Tree) TokenEndingAt(offset int) (Token, bool) {
	for _, tok := range t.Tokens {
		if tok.End == offset && tok.Kind != EOF {
			return tok, true
		}
	}
	return Token{}, false
}

// TokenContaining returns the token whose Start..End span contains offset.
func (t *Tree) TokenContaining(offset int) (Token, bool) {
	for _, tok := range t.Tokens {
		if offset >= tok.Start && offset < tok.End {
			return tok, true
		}
	}
	return Token{}, false
}
