package daemon

// Typed param/result structs for every key category the analysis daemon
// accepts (spec.md §6). Field names mirror the semantic keys the spec
// names (offset, sourcefile, compiler-args, ...); the JSON tags use the
// daemon's own dashed-key convention rather than Go field names.

// EditorOpenParams opens a buffer in the daemon's editor model.
type EditorOpenParams struct {
	SourceFile   string   `json:"sourcefile"`
	Name         string   `json:"name"`
	Text         string   `json:"sourcetext"`
	CompilerArgs []string `json:"compiler-args"`
}

// EditorCloseParams closes a buffer previously opened with editor-open.
type EditorCloseParams struct {
	Name string `json:"name"`
}

// EditorReplaceTextParams applies an incremental or full-text edit to an
// already-open buffer.
type EditorReplaceTextParams struct {
	Name       string `json:"name"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
	SourceText string `json:"sourcetext"`
}

// CursorInfoParams requests symbol information at an offset.
type CursorInfoParams struct {
	Offset              int      `json:"offset"`
	Length              int      `json:"length"`
	CompilerArgs        []string `json:"compiler-args"`
	SourceFile          string   `json:"sourcefile"`
	PrimaryFile         string   `json:"primary-file,omitempty"`
	RetrieveSymbolGraph bool     `json:"retrieve-symbol-graph"`
}

// CursorInfoResult is the daemon's symbol_info answer for one cursor.
type CursorInfoResult struct {
	Kind           string    `json:"kind"`
	Name           string    `json:"name"`
	USR            string    `json:"usr"`
	TypeName       string    `json:"typename,omitempty"`
	DocComment     string    `json:"doc-comment,omitempty"`
	DeclarationLoc *Location `json:"declaration-loc,omitempty"`
}

// Location identifies a span in a named source file, as returned inline by
// several daemon responses.
type Location struct {
	SourceFile string `json:"sourcefile"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
}

// CodeCompleteOpenParams opens a completion session (spec.md §4.4).
type CodeCompleteOpenParams struct {
	Offset       int      `json:"offset"`
	Name         string   `json:"name"`
	SourceFile   string   `json:"sourcefile"`
	SourceText   string   `json:"sourcetext"`
	CompilerArgs []string `json:"compiler-args"`
	FilterText   string   `json:"filtertext,omitempty"`
}

// CodeCompleteUpdateParams refines an already-open completion session.
type CodeCompleteUpdateParams struct {
	Name       string `json:"name"`
	Offset     int    `json:"offset"`
	FilterText string `json:"filtertext"`
}

// CodeCompleteCloseParams closes a completion session.
type CodeCompleteCloseParams struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
}

// CodeCompleteResult is shared by open and update: a (possibly partial)
// list of items plus whether more would be available with a longer filter.
type CodeCompleteResult struct {
	Items        []CompletionItem `json:"items"`
	IsIncomplete bool             `json:"is-incomplete"`
}

// CompletionItem is one daemon-produced completion candidate.
type CompletionItem struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	SourceText      string `json:"sourcetext"`
	Kind            string `json:"kind"`
	TypeName        string `json:"typename,omitempty"`
	ModuleName      string `json:"modulename,omitempty"`
	NotRecommended  bool   `json:"not-recommended"`
	NumBytesToErase int    `json:"num-bytes-to-erase"`
}

// RelatedIdentifiersParams requests every occurrence of the identifier at
// offset, for document_highlight and rename impact analysis.
type RelatedIdentifiersParams struct {
	Offset                      int      `json:"offset"`
	SourceFile                  string   `json:"sourcefile"`
	CompilerArgs                []string `json:"compiler-args"`
	IncludeNonEditableBaseNames bool     `json:"include-non-editable-base-names"`
}

// RelatedIdentifiersResult lists the occurrences and the (possibly
// compound) name they share, which RenameEngine parses as the old name to
// align its parameter slots with the requested new name's.
type RelatedIdentifiersResult struct {
	BaseName    string     `json:"base-name"`
	Occurrences []Location `json:"occurrences"`
}

// FindSyntacticRenameRangesParams asks the daemon to classify each
// candidate rename location into labeled pieces (active_code /
// comment / string / ...), per spec.md §4.8.
type FindSyntacticRenameRangesParams struct {
	SourceFile      string     `json:"sourcefile"`
	SourceText      string     `json:"sourcetext"`
	RenameLocations []Location `json:"rename-locations"`
}

// RenameRange is one piece of a compound rename name (spec.md §4.8).
// PieceKind names the piece's syntactic role (base_name,
// keyword_base_name, parameter_name, noncollapsible_parameter_name,
// decl_argument_label, call_argument_label, call_argument_colon,
// call_argument_combined, selector_argument_label); Category names the
// context the occurrence was found in (active_code, inactive_code,
// string, selector, comment, mismatch, unmatched).
type RenameRange struct {
	Location
	PieceKind string `json:"kind"`
	Category  string `json:"category"`
}

// FindSyntacticRenameRangesResult groups classified ranges per input
// location, in the same order as the request's RenameLocations.
type FindSyntacticRenameRangesResult struct {
	Ranges [][]RenameRange `json:"ranges"`
}

// SemanticRefactoringParams invokes a named refactoring action.
type SemanticRefactoringParams struct {
	ActionUID    string   `json:"action-uid"`
	Offset       int      `json:"offset"`
	Length       int      `json:"length"`
	CompilerArgs []string `json:"compiler-args"`
	SourceFile   string   `json:"sourcefile"`
}

// SemanticRefactoringResult is a set of edits the core turns into an
// apply-edit request back to the editor.
type SemanticRefactoringResult struct {
	Edits []TextEdit `json:"edits"`
}

// TextEdit is a daemon-reported source replacement, distinct from
// protocol.TextEdit (which uses line/character positions): the daemon
// reports byte offsets in its own sourcefile.
type TextEdit struct {
	Location
	Text string `json:"text"`

	// BufferName is set for macro-expansion edits: the name of the
	// synthesized buffer this edit's replacement text lives in. Ordinary
	// refactoring edits leave it empty.
	BufferName string `json:"key.bufferName,omitempty"`
}

// EditorOpenInterfaceParams requests a synthesized module interface
// (spec.md §4.6).
type EditorOpenInterfaceParams struct {
	ModuleName           string   `json:"modulename"`
	GroupName            string   `json:"groupname,omitempty"`
	SymbolName           string   `json:"name,omitempty"`
	SynthesizedExtension bool     `json:"synthesizedextension"`
	CompilerArgs         []string `json:"compiler-args"`
}

// EditorOpenInterfaceResult gives the virtual document's contents and,
// when a symbol name was requested, the offset of that symbol within it.
type EditorOpenInterfaceResult struct {
	SourceText string `json:"sourcetext"`
	Offset     int    `json:"offset,omitempty"`
}

// EditorFindUSRParams locates the declaration a USR refers to.
type EditorFindUSRParams struct {
	SourceFile string `json:"sourcefile"`
	USR        string `json:"usr"`
}

// EditorFindUSROffsetResult is empty-Offset, negative, when the USR was
// not found in sourcefile.
type EditorFindUSROffsetResult struct {
	Offset int `json:"offset"`
}

// DiagnosticsParams requests a semantic diagnostic pass for sourcefile.
type DiagnosticsParams struct {
	SourceFile   string   `json:"sourcefile"`
	CompilerArgs []string `json:"compiler-args"`
}

// Diagnostic is one semantic-stage diagnostic reported by the daemon.
type Diagnostic struct {
	Location
	Severity string       `json:"severity"` // "error", "warning", "note"
	Message  string       `json:"message"`
	Notes    []Diagnostic `json:"notes,omitempty"`
}

// DiagnosticsResult is the full semantic report for one daemon call.
type DiagnosticsResult struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// DocumentUpdateParams is the payload of a document-update notification:
// the daemon has produced fresh state for the named buffer.
type DocumentUpdateParams struct {
	Name string `json:"name"`
}
