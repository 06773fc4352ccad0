package parse

import (
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/wxtool/wxc/ast"
)

// whitespaceMode selects what the state skips transparently before lookahead
// and consumption while auto-skip is enabled.
type whitespaceMode int

const (
	wsOff whitespaceMode = iota
	wsPlain
	// wsJSComments also skips `/* ... */` comments; used inside expressions.
	wsJSComments
)

// state owns a borrowed view of the source string, a cursor byte offset,
// and the current (line, utf16-col). All cursor movement funnels through
// skipBytes, which is the single invariant the source-map pipeline relies
// on.
type state struct {
	path     string
	src      string
	idx      int
	line     uint32
	utf16Col uint32
	wsMode   whitespaceMode
	warnings []Error
}

func newState(path, src string) *state {
	if len(src) >= math.MaxUint32 {
		slog.Error("source code too long, truncated", "path", path, "len", len(src))
		src = src[:math.MaxUint32-1]
	}
	return &state{path: path, src: src}
}

func (ps *state) position() ast.Position {
	return ast.Position{Line: ps.line, UTF16Col: ps.utf16Col}
}

func (ps *state) addWarning(kind ErrorKind, loc ast.Range) {
	ps.warnings = append(ps.warnings, Error{Path: ps.path, Kind: kind, Location: loc})
}

func (ps *state) addWarningAt(kind ErrorKind) {
	ps.addWarning(kind, ast.RangeAt(ps.position()))
}

func (ps *state) cur() string { return ps.src[ps.idx:] }

func (ps *state) ended() bool { return ps.idx >= len(ps.src) }

// skipBytes advances the cursor, updating (line, utf16-col) by scanning the
// skipped bytes for newlines and counting UTF-16 code units of the rest.
func (ps *state) skipBytes(count int) {
	skipped := ps.src[ps.idx : ps.idx+count]
	ps.idx += count
	if nl := strings.LastIndexByte(skipped, '\n'); nl >= 0 {
		ps.line += uint32(strings.Count(skipped, "\n"))
		ps.utf16Col = utf16Len(skipped[nl+1:])
	} else {
		ps.utf16Col += utf16Len(skipped)
	}
}

func utf16Len(s string) uint32 {
	var n uint32
	for _, r := range s {
		n += uint32(utf16RuneLen(fixRune(r)))
	}
	return n
}

// fixRune keeps utf16RuneLen total: invalid runes decode to one
// replacement char which is a single UTF-16 unit.
func fixRune(r rune) rune {
	if utf16RuneLen(r) < 0 {
		return utf8.RuneError
	}
	return r
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

// autoSkip applies the enabled whitespace mode at the cursor.
func (ps *state) autoSkip() {
	switch ps.wsMode {
	case wsPlain:
		ps.skipWhitespace()
	case wsJSComments:
		ps.skipWhitespaceWithJSComments()
	}
}

// withWhitespaceMode runs f with the given auto-skip mode, restoring the
// previous mode afterwards.
func (ps *state) withWhitespaceMode(m whitespaceMode, f func()) {
	prev := ps.wsMode
	ps.wsMode = m
	f()
	ps.wsMode = prev
}

// peek returns the i-th character ahead without consuming, respecting the
// auto-skip mode. The second result is false at end of input.
func (ps *state) peek(i int) (rune, bool) {
	ps.autoSkip()
	for _, r := range ps.cur() {
		if i == 0 {
			return r, true
		}
		i--
	}
	return 0, false
}

func (ps *state) peekStr(s string) bool {
	ps.autoSkip()
	return strings.HasPrefix(ps.cur(), s)
}

// next consumes and returns one character.
func (ps *state) next() (rune, bool) {
	ps.autoSkip()
	r, size := utf8.DecodeRuneInString(ps.cur())
	if size == 0 {
		return 0, false
	}
	ps.skipBytes(size)
	return r, true
}

// consumeStr matches a fixed prefix and returns its range, or false.
func (ps *state) consumeStr(s string) (ast.Range, bool) {
	return ps.consumeStrExceptFollowed(s, nil)
}

// consumeStrExceptFollowed matches a fixed prefix unless it is directly
// followed by one of the given strings.
func (ps *state) consumeStrExceptFollowed(s string, excepts []string) (ast.Range, bool) {
	if !ps.peekStr(s) {
		return ast.Range{}, false
	}
	followed := ps.cur()[len(s):]
	for _, except := range excepts {
		if strings.HasPrefix(followed, except) {
			return ast.Range{}, false
		}
	}
	start := ps.position()
	ps.skipBytes(len(s))
	return ast.Range{Start: start, End: ps.position()}, true
}

// consumeStrExceptFollowedChar matches a fixed prefix unless the next
// character satisfies the reject predicate; used for keyword vs identifier
// distinction.
func (ps *state) consumeStrExceptFollowedChar(s string, reject func(rune) bool) (ast.Range, bool) {
	if !ps.peekStr(s) {
		return ast.Range{}, false
	}
	if r, size := utf8.DecodeRuneInString(ps.cur()[len(s):]); size > 0 && reject(r) {
		return ast.Range{}, false
	}
	start := ps.position()
	ps.skipBytes(len(s))
	return ast.Range{Start: start, End: ps.position()}, true
}

// skipUntilBefore advances to the next occurrence of the delimiter, leaving
// the cursor at the delimiter. Returns the skipped text, or false if the
// delimiter was not found (the rest of the input is consumed).
func (ps *state) skipUntilBefore(until string) (string, bool) {
	s := ps.cur()
	if i := strings.Index(s, until); i >= 0 {
		ret := s[:i]
		ps.skipBytes(i)
		return ret, true
	}
	ps.skipBytes(len(s))
	return s, false
}

// skipUntilAfter is skipUntilBefore plus consuming the delimiter itself.
func (ps *state) skipUntilAfter(until string) (string, bool) {
	ret, ok := ps.skipUntilBefore(until)
	if ok {
		ps.skipBytes(len(until))
	}
	return ret, ok
}

// tryParse runs f speculatively: a three-field snapshot and a rewind when f
// reports failure. Diagnostics recorded by a failed attempt are dropped.
func (ps *state) tryParse(f func() bool) bool {
	prevIdx, prevLine, prevCol := ps.idx, ps.line, ps.utf16Col
	prevWarnings := len(ps.warnings)
	if f() {
		return true
	}
	ps.idx, ps.line, ps.utf16Col = prevIdx, prevLine, prevCol
	ps.warnings = ps.warnings[:prevWarnings]
	return false
}

func isTemplateWhitespace(r rune) bool {
	return r == ' ' || (r >= '\x09' && r <= '\x0D')
}

// skipWhitespace consumes a run of whitespace and returns its range, or
// false if nothing was skipped.
func (ps *state) skipWhitespace() (ast.Range, bool) {
	start := ps.position()
	n := 0
	for _, r := range ps.cur() {
		if !isTemplateWhitespace(r) {
			break
		}
		n += utf8.RuneLen(r)
	}
	if n == 0 {
		return ast.Range{}, false
	}
	ps.skipBytes(n)
	return ast.Range{Start: start, End: ps.position()}, true
}

// skipWhitespaceWithJSComments also skips `/* ... */` comment blocks.
func (ps *state) skipWhitespaceWithJSComments() (ast.Range, bool) {
	start := ps.position()
	skipped := false
	for {
		if _, ok := ps.skipWhitespace(); ok {
			skipped = true
			continue
		}
		if strings.HasPrefix(ps.cur(), "/*") {
			skipped = true
			ps.skipBytes(2)
			ps.skipUntilAfter("*/")
			continue
		}
		break
	}
	if !skipped {
		return ast.Range{}, false
	}
	return ast.Range{Start: start, End: ps.position()}, true
}
