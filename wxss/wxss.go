// Package wxss rewrites WXSS stylesheets token-by-token: class selectors
// gain a configured prefix, `rpx` lengths become `px`, `@import` placement
// is policed, and everything else passes through verbatim. The token
// stream comes from the gorilla/css scanner; the transformer only adds
// position tracking, the rewriting steps and source-map output.
package wxss

import (
	"io"
	"strconv"
	"strings"

	"github.com/gorilla/css/scanner"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/sourcemap"
)

// Options configure the rewriting steps.
type Options struct {
	// ClassPrefix, when non-empty, rewrites `.name` to `.{prefix}--{name}`.
	ClassPrefix string
	// RpxRatio is the design-width ratio for `rpx` lengths; the emitted
	// `px` value is the source value times (screen ratio / RpxRatio) with
	// a screen ratio of 1. Zero means the 750 default.
	RpxRatio float64
}

// DefaultRpxRatio is the design width the `rpx` unit is relative to.
const DefaultRpxRatio = 750

// Transformer holds the rewritten stylesheet and its diagnostics.
type Transformer struct {
	path     string
	out      *output
	warnings []Error
}

// FromCSS transforms the stylesheet source in one pass. The transformer
// stops at the first byte sequence that cannot form a token, after
// recording the fatal diagnostic.
func FromCSS(path, src string, opts Options) *Transformer {
	if opts.RpxRatio == 0 {
		opts.RpxRatio = DefaultRpxRatio
	}
	t := &Transformer{path: path, out: newOutput(path, src)}
	t.run(src, opts)
	return t
}

// Content returns the rewritten stylesheet text.
func (t *Transformer) Content() string { return t.out.content() }

// WriteContent writes the rewritten stylesheet.
func (t *Transformer) WriteContent(w io.Writer) error { return t.out.writeContent(w) }

// WriteSourceMap writes the source map as v3 JSON.
func (t *Transformer) WriteSourceMap(w io.Writer) error { return t.out.writeSourceMap(w) }

// SourceMap exposes the builder, mainly for tests.
func (t *Transformer) SourceMap() *sourcemap.Builder { return t.out.smb }

// Warnings returns the diagnostics collected during transformation.
func (t *Transformer) Warnings() []Error { return t.warnings }

func (t *Transformer) addWarning(kind ErrorKind, loc ast.Range) {
	t.warnings = append(t.warnings, Error{Path: t.path, Kind: kind, Location: loc})
}

// tracked pairs a scanner token with its UTF-16 position.
type tracked struct {
	tok *scanner.Token
	pos ast.Position
}

func (t *Transformer) run(src string, opts Options) {
	sc := scanner.New(src)
	var line, col uint32
	read := func() *tracked {
		tok := sc.Next()
		tr := &tracked{tok: tok, pos: ast.Position{Line: line, UTF16Col: col}}
		if nl := strings.LastIndexByte(tok.Value, '\n'); nl >= 0 {
			line += uint32(strings.Count(tok.Value, "\n"))
			col = utf16ColLen(tok.Value[nl+1:])
		} else {
			col += utf16ColLen(tok.Value)
		}
		return tr
	}

	importAllowed := true
	inImportRule := false
	var pending *tracked
	next := func() *tracked {
		if p := pending; p != nil {
			pending = nil
			return p
		}
		return read()
	}

	for {
		tr := next()
		switch tr.tok.Type {
		case scanner.TokenEOF:
			return
		case scanner.TokenError:
			end := tr.pos
			end.UTF16Col += utf16ColLen(tr.tok.Value)
			t.addWarning(ErrUnexpectedCharacter, ast.Range{Start: tr.pos, End: end})
			return
		case scanner.TokenS:
			t.out.appendSpace()
			continue
		case scanner.TokenComment:
			t.out.appendToken(tr.tok.Value, serOther, tr.pos, "")
			continue
		case scanner.TokenCDO, scanner.TokenCDC:
			t.out.appendToken(tr.tok.Value, serOther, tr.pos, "")
			continue
		case scanner.TokenAtKeyword:
			if strings.EqualFold(tr.tok.Value, "@import") {
				if !importAllowed {
					end := tr.pos
					end.UTF16Col += utf16ColLen(tr.tok.Value)
					t.addWarning(ErrIllegalImportPosition, ast.Range{Start: tr.pos, End: end})
				}
				inImportRule = true
				t.out.appendToken(tr.tok.Value, serAtKeyword, tr.pos, "")
				continue
			}
			importAllowed = false
			t.out.appendToken(tr.tok.Value, serAtKeyword, tr.pos, "")
			continue
		case scanner.TokenDimension:
			t.markContent(&importAllowed, inImportRule)
			t.emitDimension(tr, opts)
			continue
		case scanner.TokenChar:
			if tr.tok.Value == ";" && inImportRule {
				inImportRule = false
				t.out.appendToken(";", serDelim, tr.pos, "")
				continue
			}
			if tr.tok.Value == "." && opts.ClassPrefix != "" {
				peeked := read()
				if peeked.tok.Type == scanner.TokenIdent {
					t.markContent(&importAllowed, inImportRule)
					t.out.appendToken(".", serDelim, tr.pos, "")
					t.out.appendRaw(opts.ClassPrefix + "--")
					t.out.appendToken(peeked.tok.Value, serIdent, peeked.pos, peeked.tok.Value)
					continue
				}
				pending = peeked
			}
			t.markContent(&importAllowed, inImportRule)
			t.out.appendToken(tr.tok.Value, serDelim, tr.pos, "")
			continue
		default:
			t.markContent(&importAllowed, inImportRule)
			t.out.appendToken(tr.tok.Value, tokenSerType(tr.tok), tr.pos, "")
		}
	}
}

// markContent flips the import permission once real content appears.
func (t *Transformer) markContent(importAllowed *bool, inImportRule bool) {
	if !inImportRule {
		*importAllowed = false
	}
}

// emitDimension rewrites `rpx` lengths to `px`; other dimensions pass
// through.
func (t *Transformer) emitDimension(tr *tracked, opts Options) {
	raw := tr.tok.Value
	if !strings.HasSuffix(strings.ToLower(raw), "rpx") {
		t.out.appendToken(raw, serDimension, tr.pos, "")
		return
	}
	numText := raw[:len(raw)-3]
	num, err := strconv.ParseFloat(numText, 64)
	if err != nil {
		t.out.appendToken(raw, serDimension, tr.pos, "")
		return
	}
	// screen ratio is fixed at 1; the rpx ratio scales the design width
	px := num / opts.RpxRatio
	text := strconv.FormatFloat(px, 'f', -1, 64) + "px"
	t.out.appendToken(text, serDimension, tr.pos, raw)
}

func tokenSerType(tok *scanner.Token) serType {
	switch tok.Type {
	case scanner.TokenIdent:
		return serIdent
	case scanner.TokenAtKeyword:
		return serAtKeyword
	case scanner.TokenHash:
		return serHash
	case scanner.TokenNumber:
		return serNumber
	case scanner.TokenDimension:
		return serDimension
	case scanner.TokenPercentage:
		return serPercentage
	case scanner.TokenString:
		return serString
	case scanner.TokenURI:
		return serURI
	case scanner.TokenFunction:
		return serFunction
	case scanner.TokenChar:
		return serDelim
	}
	return serOther
}
