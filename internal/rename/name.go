package rename

import (
	"strings"

	"github.com/swiftlang/sourcekit-lsp-core/internal/corerr"
)

// Parameter is one slot of a compound name: either a label or a wildcard
// ("_").
type Parameter struct {
	Wildcard bool
	Label    string
}

// Name is a parsed compound name, e.g. "foo(a:b:)" → {BaseName: "foo",
// Parameters: [{Label:"a"},{Label:"b"}]}. A bare identifier with no
// parentheses has a nil Parameters slice (spec.md §4.8 step 2).
type Name struct {
	BaseName   string
	Parameters []Parameter
}

// ParseName parses a compound name. It fails with corerr.InvalidName if a
// '(' has no matching ')', or a ')' is not the final character.
func ParseName(s string) (Name, error) {
	idx := strings.IndexByte(s, '(')
	if idx < 0 {
		return Name{BaseName: s}, nil
	}
	if !strings.HasSuffix(s, ")") {
		return Name{}, corerr.New(corerr.InvalidName, "unmatched '(' in name %q", s)
	}

	base := s[:idx]
	inner := s[idx+1 : len(s)-1]
	if strings.Contains(inner, "(") || strings.Contains(inner, ")") {
		return Name{}, corerr.New(corerr.InvalidName, "nested parentheses in name %q", s)
	}
	if inner == "" {
		return Name{BaseName: base}, nil
	}

	parts := strings.Split(inner, ":")
	if parts[len(parts)-1] != "" {
		return Name{}, corerr.New(corerr.InvalidName, "parameter list in name %q is not colon-terminated", s)
	}
	parts = parts[:len(parts)-1]

	params := make([]Parameter, 0, len(parts))
	for _, p := range parts {
		if p == "_" {
			params = append(params, Parameter{Wildcard: true})
		} else {
			params = append(params, Parameter{Label: p})
		}
	}
	return Name{BaseName: base, Parameters: params}, nil
}
