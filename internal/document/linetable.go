package document

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/swiftlang/sourcekit-lsp-core/internal/protocol"
)

// LineTable provides UTF-8 <-> UTF-16 <-> line/column coordinate
// translation over an immutable text buffer. It is modeled on gopls's
// protocol.Mapper: line starts are computed lazily and cached, since most
// snapshots are never queried for positions at all (spec.md §3).
type LineTable struct {
	text []byte

	once      sync.Once
	lineStart []int // byte offset of the start of line i (0-based); always has at least one entry
}

// NewLineTable derives a LineTable from text. Construction is O(1); the
// line index is built lazily on first use.
func NewLineTable(text []byte) *LineTable {
	return &LineTable{text: text}
}

func (lt *LineTable) init() {
	lt.once.Do(func() {
		lt.lineStart = []int{0}
		for i, b := range lt.text {
			if b == '\n' {
				lt.lineStart = append(lt.lineStart, i+1)
			}
		}
	})
}

// LineCount returns the number of lines in the text (always >= 1).
func (lt *LineTable) LineCount() int {
	lt.init()
	return len(lt.lineStart)
}

// Line returns the byte slice for 0-based line i, including its trailing
// newline if any, or "" if the line doesn't exist.
func (lt *LineTable) Line(i int) []byte {
	lt.init()
	if i < 0 || i >= len(lt.lineStart) {
		return nil
	}
	start := lt.lineStart[i]
	end := len(lt.text)
	if i+1 < len(lt.lineStart) {
		end = lt.lineStart[i+1]
	}
	return lt.text[start:end]
}

// Utf8OffsetOf converts a zero-based (line, utf16Col) position to a byte
// offset into the text. Returns an error if the position does not resolve.
func (lt *LineTable) Utf8OffsetOf(pos protocol.Position) (int, error) {
	lt.init()
	line := int(pos.Line)
	if line < 0 || line >= len(lt.lineStart) {
		return 0, fmt.Errorf("line %d out of range [0,%d)", line, len(lt.lineStart))
	}
	lineStart := lt.lineStart[line]
	lineEnd := len(lt.text)
	if line+1 < len(lt.lineStart) {
		lineEnd = lt.lineStart[line+1]
	}
	lineBytes := lt.text[lineStart:lineEnd]

	// Walk the line counting UTF-16 code units until Character is reached.
	units := uint32(0)
	offset := 0
	for offset < len(lineBytes) {
		if units == pos.Character {
			return lineStart + offset, nil
		}
		r, size := utf8.DecodeRune(lineBytes[offset:])
		if r == '\n' {
			break
		}
		if r > 0xFFFF {
			units += 2 // encoded as a UTF-16 surrogate pair
		} else {
			units++
		}
		offset += size
	}
	if units == pos.Character {
		return lineStart + offset, nil
	}
	return 0, fmt.Errorf("character %d out of range on line %d", pos.Character, line)
}

// PositionOf converts a byte offset to a zero-based (line, utf16Col)
// Position. Returns an error if the offset is out of range.
func (lt *LineTable) PositionOf(offset int) (protocol.Position, error) {
	lt.init()
	if offset < 0 || offset > len(lt.text) {
		return protocol.Position{}, fmt.Errorf("offset %d out of range [0,%d]", offset, len(lt.text))
	}
	line := searchLine(lt.lineStart, offset)
	lineStart := lt.lineStart[line]
	units := uint32(0)
	pos := lineStart
	for pos < offset {
		r, size := utf8.DecodeRune(lt.text[pos:])
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		pos += size
	}
	return protocol.Position{Line: uint32(line), Character: units}, nil
}

// Utf8ColumnOf converts a byte offset to a zero-based (line, utf8Col)
// position, where utf8Col is measured in bytes. Used by components (like
// CoordinateAdjuster) that work directly in byte-oriented token ranges.
func (lt *LineTable) Utf8ColumnOf(offset int) (line, col int, err error) {
	lt.init()
	if offset < 0 || offset > len(lt.text) {
		return 0, 0, fmt.Errorf("offset %d out of range [0,%d]", offset, len(lt.text))
	}
	l := searchLine(lt.lineStart, offset)
	return l, offset - lt.lineStart[l], nil
}

func searchLine(lineStart []int, offset int) int {
	// Binary search for the last line whose start is <= offset.
	lo, hi := 0, len(lineStart)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStart[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
