package lspserver

import (
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Offset converts an LSP position, whose character is counted in UTF-16
// code units, to a byte offset into text. Positions past the end of a line
// clamp to the line end; lines past the end of text clamp to len(text).
func Offset(text string, pos protocol.Position) int {
	i := 0
	for line := uint32(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[i:], '\n')
		if nl < 0 {
			return len(text)
		}
		i += nl + 1
	}
	for units := uint32(0); i < len(text) && units < pos.Character; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' || (r == '\r' && i+1 < len(text) && text[i+1] == '\n') {
			break
		}
		units += utf16Len(r)
		if units > pos.Character {
			break
		}
		i += size
	}
	return i
}

// Position converts a byte offset into text to an LSP position.
func Position(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	var pos protocol.Position
	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			pos.Line++
			pos.Character = 0
		} else {
			pos.Character += utf16Len(r)
		}
		i += size
	}
	return pos
}

func utf16Len(r rune) uint32 {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
