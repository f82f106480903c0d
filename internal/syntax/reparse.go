package syntax

// EditSpan is a single byte-offset edit against the tree's previous
// source, expressed the same way document.Edit is (spec.md §4.2:
// "replaying the edits over the previous tree with its lookahead ranges").
type EditSpan struct {
	Start, End int
}

// Reparse produces the Tree for newText given a previous Tree parsed from
// the pre-edit text, and the edits that were applied to reach newText. It
// re-lexes only the suffix of newText starting at the first previous token
// that ends at or after the earliest edit's start offset: a
// trailing-boundary edit can extend that token (e.g. appending a character
// to the end of an identifier), so it is re-lexed rather than reused
// verbatim. Everything strictly before it is guaranteed byte-identical to
// the previous parse, and is therefore provably token-identical to what
// Parse(newText) would produce. If edits is empty or prev is nil, it falls
// back to a full Parse.
func Reparse(prev *Tree, newText []byte, edits []EditSpan) *Tree {
	if prev == nil || len(edits) == 0 {
		return Parse(newText)
	}

	earliest := edits[0].Start
	for _, e := range edits[1:] {
		if e.Start < earliest {
			earliest = e.Start
		}
	}

	// Find the first previous token whose End is >= earliest: a
	// trailing-boundary edit (Start == token.End, e.g. appending a
	// character right after an identifier) can extend that token, so it
	// must be re-lexed rather than reused verbatim. Every token strictly
	// before it ends before earliest and is untouched by any edit.
	reuseUpTo := len(prev.Tokens) // index of first token that must be re-lexed
	splitOffset := len(prev.Source)
	for i, tok := range prev.Tokens {
		if tok.End >= earliest {
			reuseUpTo = i
			splitOffset = tok.TriviaStart
			break
		}
	}
	if splitOffset > len(newText) {
		return Parse(newText) // edits shrank the file below the split point
	}

	prefix := prev.Tokens[:reuseUpTo]
	suffixTokens := lex(newText[splitOffset:])
	for i := range suffixTokens {
		suffixTokens[i].TriviaStart += splitOffset
		suffixTokens[i].Start += splitOffset
		suffixTokens[i].End += splitOffset
	}

	tokens := make([]Token, 0, len(prefix)+len(suffixTokens))
	tokens = append(tokens, prefix...)
	tokens = append(tokens, suffixTokens...)

	return &Tree{
		Source:      newText,
		Tokens:      tokens,
		Lookahead:   computeLookahead(tokens),
		Diagnostics: diagnose(newText, tokens),
	}
}
