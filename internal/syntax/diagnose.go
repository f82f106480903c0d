package syntax

// diagnose performs the handful of local, syntax-only checks this parser
// is responsible for: unbalanced brackets, and a dangling binary operator
// at end-of-file (e.g. "let x = " with nothing after the "="). These are
// exactly the parse-stage diagnostics DiagnosticEngine falls back to when
// no real build settings are available (spec.md §4.3).
func diagnose(src []byte, tokens []Token) []Diagnostic {
	var diags []Diagnostic

	type open struct {
		text  string
		start int
	}
	var stack []open
	pairs := map[string]string{")": "(", "}": "{", "]": "["}

	for _, tok := range tokens {
		if tok.Kind != Punctuation {
			continue
		}
		switch tok.Text {
		case "(", "{", "[":
			stack = append(stack, open{text: tok.Text, start: tok.Start})
		case ")", "}", "]":
			want := pairs[tok.Text]
			if len(stack) == 0 || stack[len(stack)-1].text != want {
				diags = append(diags, Diagnostic{
					Start: tok.Start, End: tok.End,
					Message: "unexpected closing '" + tok.Text + "'",
				})
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	for _, o := range stack {
		diags = append(diags, Diagnostic{
			Start: o.start, End: o.start + len(o.text),
			Message: "unmatched opening '" + o.text + "'",
		})
	}

	if n := len(tokens); n >= 2 {
		eof := tokens[n-1]
		last := tokens[n-2]
		if last.Kind == Operator && endsExpression(last.Text) {
			diags = append(diags, Diagnostic{
				Start: eof.Start, End: eof.Start,
				Message: "expected expression after '" + last.Text + "'",
			})
		}
	}

	return diags
}

// endsExpression reports whether op is a binary/assignment operator that
// must be followed by an operand.
func endsExpression(op string) bool {
	switch op {
	case "=", "+", "-", "*", "/", "%", "==", "!=", "<", ">", "<=", ">=",
		"&&", "||", "+=", "-=", "*=", "/=":
		return true
	}
	return false
}
