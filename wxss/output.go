package wxss

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/sourcemap"
)

// serType classifies an emitted token for the needs-separator rule between
// consecutive tokens.
type serType int

const (
	serNothing serType = iota
	serWhitespace
	serIdent
	serAtKeyword
	serHash
	serNumber
	serDimension
	serPercentage
	serString
	serURI
	serFunction
	serDelim
	serOther
)

// needsSeparator reports whether a single space must be inserted between
// a token of type prev and a following token of type next to keep the two
// from re-tokenizing as one.
func needsSeparator(prev, next serType) bool {
	switch prev {
	case serNothing, serWhitespace:
		return false
	case serIdent, serAtKeyword, serHash, serDimension:
		switch next {
		case serIdent, serAtKeyword, serHash, serNumber, serDimension, serPercentage, serURI, serFunction:
			return true
		}
	case serNumber:
		switch next {
		case serIdent, serNumber, serDimension, serPercentage, serURI, serFunction:
			return true
		}
	}
	return false
}

// output accumulates rewritten CSS together with its source map. Column
// accounting is in UTF-16 code units over the output buffer.
type output struct {
	b        strings.Builder
	prevSer  serType
	smb      *sourcemap.Builder
	sourceID int
	line     uint32
	utf16Col uint32
}

func newOutput(path, source string) *output {
	smb := sourcemap.NewBuilder("")
	id := smb.AddSource(path)
	smb.SetSourceContents(id, source)
	return &output{smb: smb, sourceID: id}
}

func (o *output) advance(s string) {
	o.b.WriteString(s)
	if nl := strings.LastIndexByte(s, '\n'); nl >= 0 {
		o.line += uint32(strings.Count(s, "\n"))
		o.utf16Col = utf16ColLen(s[nl+1:])
	} else {
		o.utf16Col += utf16ColLen(s)
	}
}

// appendRaw emits synthesized text with no mapping; the separator state
// resets so no space is inserted around it.
func (o *output) appendRaw(s string) {
	o.prevSer = serNothing
	o.advance(s)
}

// appendSpace emits the single space a whitespace run collapses to.
func (o *output) appendSpace() {
	o.prevSer = serWhitespace
	o.advance(" ")
}

// appendToken emits one token, inserting a separating space when the
// previous token requires one, and records its mapping. name is non-empty
// for rewritten tokens and holds the original serialization.
func (o *output) appendToken(text string, ser serType, pos ast.Position, name string) {
	if needsSeparator(o.prevSer, ser) {
		o.advance(" ")
	}
	o.prevSer = ser
	nameID := -1
	if name != "" {
		nameID = o.smb.AddName(name)
	}
	o.smb.Add(o.line, o.utf16Col, pos.Line, pos.UTF16Col, o.sourceID, nameID)
	o.advance(text)
}

func (o *output) content() string { return o.b.String() }

func (o *output) writeContent(w io.Writer) error {
	_, err := io.WriteString(w, o.b.String())
	return err
}

func (o *output) writeSourceMap(w io.Writer) error {
	return o.smb.WriteTo(w)
}

func utf16ColLen(s string) uint32 {
	var n uint32
	for _, r := range s {
		if utf16RuneLen(r) < 0 {
			r = utf8.RuneError
		}
		n += uint32(utf16RuneLen(r))
	}
	return n
}

// utf16RuneLen reports the number of 16-bit words needed to encode r,
// or -1 if r cannot be encoded in UTF-16.
func utf16RuneLen(r rune) int {
	switch {
	case r < 0:
		return -1
	case r < 0xd800:
		return 1
	case r < 0xe000:
		return -1
	case r < 0x10000:
		return 1
	case r <= 0x10ffff:
		return 2
	default:
		return -1
	}
}
