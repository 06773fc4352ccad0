// Package stringify re-serializes parsed templates: canonical markup that
// round-trips through the parser, and a TS-flavored expression flattening
// for downstream type analysis. Both modes drive a source-map builder,
// recording one mapping per emitted token.
package stringify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/sourcemap"
)

// Options control the output shape.
type Options struct {
	// SourceMap enables source-map collection.
	SourceMap bool
	// Mangling replaces iteration variable names with fresh `$i` names,
	// maintained on a scope stack.
	Mangling bool
	// Minimize drops indentation, separator lines and comments. Other
	// formatting options are ignored when set.
	Minimize bool
	// TabSize is the indent width in spaces.
	TabSize int
	// UseTabCharacter indents with `\t` instead of spaces.
	UseTabCharacter bool
	// LineWidthLimit is the preferred maximum line width. Attribute lists
	// wider than the limit break one attribute per line.
	LineWidthLimit int
}

// DefaultOptions returns the formatting defaults.
func DefaultOptions() Options {
	return Options{TabSize: 4, LineWidthLimit: 100}
}

// Stringifier writes characters to an output buffer while maintaining its
// own (line, utf16-col), recording a source mapping for every token write.
type Stringifier struct {
	b          strings.Builder
	line       uint32
	utf16Col   uint32
	smb        *sourcemap.Builder
	sourceID   int
	sourcePath string
	opts       Options
	indent     int
	lineStart  bool
	scopeNames []string
	counting   bool // width probe: suppress mappings, count only
}

// New returns a stringifier for output derived from the given source.
// source may be empty when source-map output is disabled.
func New(sourcePath, source string, opts Options) *Stringifier {
	s := &Stringifier{sourcePath: sourcePath, opts: opts, lineStart: true}
	if opts.SourceMap {
		s.smb = sourcemap.NewBuilder(sourcePath)
		s.sourceID = s.smb.AddSource(sourcePath)
		s.smb.SetSourceContents(s.sourceID, source)
	}
	return s
}

// Finish returns the output text and the source map (nil when disabled).
func (s *Stringifier) Finish() (string, *sourcemap.Builder) {
	return s.b.String(), s.smb
}

// Run stringifies the template in canonical mode.
func (s *Stringifier) Run(tmpl *ast.Template) {
	s.writeTemplate(tmpl)
}

// WriteStr emits text that maps to nothing: punctuation and synthesized
// output.
func (s *Stringifier) WriteStr(str string) {
	if str == "" {
		return
	}
	s.b.WriteString(str)
	s.lineStart = false
	if nl := strings.LastIndexByte(str, '\n'); nl >= 0 {
		s.line += uint32(strings.Count(str, "\n"))
		s.utf16Col = utf16StrLen(str[nl+1:])
	} else {
		s.utf16Col += utf16StrLen(str)
	}
}

// WriteToken emits a run that corresponds to an input construct, recording
// one mapping before writing. name is interned into the map's name table
// when non-empty.
func (s *Stringifier) WriteToken(dest, name string, loc ast.Range) {
	if s.smb != nil && !s.counting {
		nameID := -1
		if name != "" {
			nameID = s.smb.AddName(name)
		}
		s.smb.Add(s.line, s.utf16Col, loc.Start.Line, loc.Start.UTF16Col, s.sourceID, nameID)
	}
	s.WriteStr(dest)
}

// WriteIdent emits an identifier token; withName controls whether the name
// lands in the map's name table.
func (s *Stringifier) WriteIdent(n ast.Ident, withName bool) {
	name := ""
	if withName {
		name = n.Name
	}
	s.WriteToken(n.Name, name, n.Loc)
}

// WriteStrNameQuoted emits `"..."` with attribute escaping, the inner text
// mapped to the name's location.
func (s *Stringifier) WriteStrNameQuoted(n ast.StrName) {
	s.WriteStr(`"`)
	s.WriteToken(escapeHTMLQuote(n.Name), n.Name, n.Loc)
	s.WriteStr(`"`)
}

// AddScope registers a scope name, returning the emitted form: the original
// name, or `$i` when mangling.
func (s *Stringifier) AddScope(name string) string {
	emitted := name
	if s.opts.Mangling {
		emitted = fmt.Sprintf("$%d", len(s.scopeNames))
	}
	s.scopeNames = append(s.scopeNames, emitted)
	return emitted
}

// ScopeName resolves a scope index to its emitted name.
func (s *Stringifier) ScopeName(index int) string {
	if index < 0 || index >= len(s.scopeNames) {
		return "__INVALID_SCOPE_NAME__"
	}
	return s.scopeNames[index]
}

// scopeSpace runs f and drops any scopes f registered.
func (s *Stringifier) scopeSpace(f func()) {
	n := len(s.scopeNames)
	f()
	s.scopeNames = s.scopeNames[:n]
}

// --- layout helpers ---

func (s *Stringifier) writeIndent() {
	if s.opts.Minimize {
		return
	}
	for i := 0; i < s.indent; i++ {
		if s.opts.UseTabCharacter {
			s.WriteStr("\t")
		} else {
			s.WriteStr(strings.Repeat(" ", s.opts.TabSize))
		}
	}
}

// writeLine emits one logical line: indent, content, newline. Minimized
// output drops both the indent and the newline.
func (s *Stringifier) writeLine(f func()) {
	s.writeIndent()
	s.lineStart = true
	f()
	if !s.opts.Minimize {
		s.WriteStr("\n")
	}
}

// sepLine writes the blank line separating top-level groups.
func (s *Stringifier) sepLine() {
	if s.opts.Minimize || (s.line == 0 && s.utf16Col == 0) {
		return
	}
	s.WriteStr("\n")
}

// subBlock runs f one indent level deeper.
func (s *Stringifier) subBlock(f func()) {
	s.indent++
	f()
	s.indent--
}

func utf16StrLen(str string) uint32 {
	var n uint32
	for _, r := range str {
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

// measure returns the output width f would produce on a single line, or
// false if f emits a newline. The probe stringifier suppresses mappings
// and discards its output.
func (s *Stringifier) measure(f func(w *Stringifier)) (uint32, bool) {
	probe := &Stringifier{
		sourcePath: s.sourcePath,
		opts:       s.opts,
		counting:   true,
		lineStart:  true,
		scopeNames: append([]string(nil), s.scopeNames...),
	}
	probe.opts.SourceMap = false
	f(probe)
	if probe.line > 0 {
		return 0, false
	}
	return probe.utf16Col, true
}
