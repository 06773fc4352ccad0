// Package parse converts WXML template source into its in-memory
// representation, collecting diagnostics instead of failing: any byte
// sequence parses to some tree plus a diagnostic list.
package parse

import (
	"sort"
	"strings"
	"unicode"

	"github.com/wxtool/wxc/ast"
)

// parser carries the cursor state plus the stack of iteration scopes
// introduced by enclosing `wx:for` elements.
type parser struct {
	ps     *state
	scopes []ast.StrName
	// dataShorthand lets `{{ key: value, ... }}` parse as an object
	// literal without braces (template-ref data attributes).
	dataShorthand bool
}

// Tmpl parses one template source file. The returned diagnostics are in
// source order; callers treat any diagnostic of LevelError or above as
// preventing successful compilation.
func Tmpl(path, src string) (*ast.Template, []Error) {
	ps := newState(path, src)
	p := &parser{ps: ps}
	tmpl := &ast.Template{Path: path}
	tmpl.Content = p.parseNodes(tmpl, true)
	CollectBindingMaps(tmpl)
	warnings := ps.warnings
	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Location.Start.Before(warnings[j].Location.Start)
	})
	return tmpl, warnings
}

// parseNodes parses sibling nodes until an end tag or end of input. It owns
// if/elif/else folding across siblings.
func (p *parser) parseNodes(tmpl *ast.Template, topLevel bool) []ast.Node {
	ps := p.ps
	var nodes []ast.Node
	var lastIf *ast.If
	appendNode := func(n ast.Node) {
		nodes = append(nodes, n)
		lastIf = nil
	}
	for !ps.ended() {
		if ps.peekStr("</") {
			if !topLevel {
				return nodes
			}
			p.skipInvalidEndTag()
			continue
		}
		if ps.peekStr("<!--") {
			start := ps.position()
			ps.skipBytes(4)
			text, _ := ps.skipUntilAfter("-->")
			nodes = append(nodes, &ast.Comment{Text: text, Loc: ast.Range{Start: start, End: ps.position()}})
			// comments do not break if/elif adjacency
			continue
		}
		if ps.peekStr("<!") {
			start := ps.position()
			ps.skipBytes(2)
			textStart := ps.position()
			text, _ := ps.skipUntilBefore(">")
			textEnd := ps.position()
			if !ps.ended() {
				ps.skipBytes(1)
			}
			loc := ast.Range{Start: textStart, End: textEnd}
			ps.addWarning(ErrUnknownMetaTag, ast.Range{Start: start, End: ps.position()})
			appendNode(&ast.UnknownMetaTag{Text: text, Loc: loc})
			continue
		}
		if p.atStartTag() {
			elem, dir := p.parseElement(tmpl)
			if elem == nil {
				continue
			}
			lastIf = p.foldElement(&nodes, lastIf, elem, dir)
			continue
		}
		value, fatal := p.parseText()
		if fatal || value == nil {
			continue
		}
		if sv, ok := value.(*ast.StaticValue); ok {
			if strings.TrimFunc(sv.Value, isTemplateWhitespace) == "" {
				// whitespace-only runs separate siblings but produce no node
				continue
			}
		}
		if len(nodes) == 0 && topLevel {
			trimLeadingTextWhitespace(value)
		}
		appendNode(&ast.TextNode{Value: value})
	}
	return nodes
}

// atStartTag reports whether the cursor sits at `<` followed by a name.
func (p *parser) atStartTag() bool {
	if !p.ps.peekStr("<") {
		return false
	}
	r, ok := p.ps.peek(1)
	return ok && (isIdentStartChar(r) || r == ':')
}

func (p *parser) skipInvalidEndTag() {
	ps := p.ps
	start := ps.position()
	ps.skipBytes(2)
	ps.skipUntilBefore(">")
	end := ps.position()
	if !ps.ended() {
		ps.skipBytes(1)
	}
	ps.addWarning(ErrInvalidEndTag, ast.Range{Start: start, End: end})
}

// parseText consumes a text run up to the next tag, decoding entities and
// parsing interpolations. A fatal interpolation error drops the whole run.
func (p *parser) parseText() (ast.Value, bool) {
	ps := p.ps
	type part struct {
		lit      string
		litLoc   ast.Range
		expr     ast.Expression
		braceLoc [2]ast.Range
	}
	var parts []part
	var lit strings.Builder
	litStart := ps.position()
	flushLit := func() {
		if lit.Len() > 0 {
			parts = append(parts, part{lit: lit.String(), litLoc: ast.Range{Start: litStart, End: ps.position()}})
			lit.Reset()
		}
		litStart = ps.position()
	}
	for !ps.ended() {
		if ps.peekStr("<") && p.nextIsTagLike() {
			break
		}
		if ps.peekStr("{{") {
			flushLit()
			expr, braceLoc, fatal := p.parseInterpolation()
			if fatal {
				return nil, true
			}
			parts = append(parts, part{expr: expr, braceLoc: braceLoc})
			litStart = ps.position()
			continue
		}
		if ps.peekStr("&") {
			p.consumeEntity(&lit)
			continue
		}
		r, _ := ps.next()
		lit.WriteRune(r)
	}
	flushLit()
	if len(parts) == 0 {
		return nil, false
	}
	allStatic := true
	for _, pt := range parts {
		if pt.expr != nil {
			allStatic = false
			break
		}
	}
	if allStatic {
		var b strings.Builder
		for _, pt := range parts {
			b.WriteString(pt.lit)
		}
		return &ast.StaticValue{
			Value: b.String(),
			Loc:   ast.Range{Start: parts[0].litLoc.Start, End: parts[len(parts)-1].litLoc.End},
		}, false
	}
	return p.assembleDynamic(func(yield func(litVal string, litLoc ast.Range, expr ast.Expression, braceLoc [2]ast.Range)) {
		for _, pt := range parts {
			yield(pt.lit, pt.litLoc, pt.expr, pt.braceLoc)
		}
	}), false
}

// nextIsTagLike reports whether the `<` at the cursor begins a recognized
// tag form; a dangling `<` is emitted as literal text.
func (p *parser) nextIsTagLike() bool {
	if p.ps.peekStr("<!") || p.ps.peekStr("</") {
		return true
	}
	return p.atStartTag()
}

// consumeEntity decodes the entity at the cursor into b, reporting
// malformed forms. The diagnostic range may cover scanned bytes beyond
// what is consumed (entities are ASCII, so column arithmetic is direct).
func (p *parser) consumeEntity(b *strings.Builder) {
	ps := p.ps
	res := decodeEntity(ps.cur())
	if res.hasErr {
		start := ps.position()
		end := start
		end.UTF16Col += utf16Len(ps.cur()[:res.errBytes])
		ps.addWarning(res.errKind, ast.Range{Start: start, End: end})
	}
	ps.skipBytes(res.size)
	b.WriteString(res.text)
}

// assembleDynamic joins literal segments and interpolations with `+`,
// wrapping each interpolation in the string coercion. A single bare
// interpolation stays unwrapped.
func (p *parser) assembleDynamic(iter func(yield func(string, ast.Range, ast.Expression, [2]ast.Range))) ast.Value {
	var exprs []ast.Expression
	var first, last [2]ast.Range
	n := 0
	interpCount := 0
	iter(func(litVal string, litLoc ast.Range, expr ast.Expression, braceLoc [2]ast.Range) {
		if expr == nil {
			exprs = append(exprs, &ast.LitStr{Value: litVal, Loc: litLoc})
		} else {
			interpCount++
			if n == 0 {
				first = braceLoc
			}
			last = braceLoc
			exprs = append(exprs, &ast.ToStringWithoutUndefined{Arg: expr, Loc: braceLoc[1]})
			n++
		}
	})
	if len(exprs) == 1 && interpCount == 1 {
		// single pure interpolation: no coercion wrapper
		wrapped := exprs[0].(*ast.ToStringWithoutUndefined)
		return &ast.DynamicValue{Expr: wrapped.Arg, BraceLoc: first}
	}
	expr := exprs[0]
	for _, e := range exprs[1:] {
		expr = &ast.Binary{
			Op:    "+",
			Left:  expr,
			Right: e,
			OpLoc: ast.RangeAt(expr.Location().End),
			Loc:   ast.Range{Start: expr.Location().Start, End: e.Location().End},
		}
	}
	return &ast.DynamicValue{Expr: expr, BraceLoc: [2]ast.Range{first[0], last[1]}}
}

// parseInterpolation parses one `{{ ... }}`. The opening braces are at the
// cursor. fatal is set when the closing braces are missing or the
// expression cannot be scanned; the caller drops the construct.
func (p *parser) parseInterpolation() (ast.Expression, [2]ast.Range, bool) {
	ps := p.ps
	open, _ := ps.consumeStr("{{")
	var expr ast.Expression
	var closeLoc ast.Range
	fatal := false
	ps.withWhitespaceMode(wsJSComments, func() {
		ps.autoSkip()
		if ps.peekStr("}}") {
			closeLoc, _ = ps.consumeStr("}}")
			ps.addWarning(ErrEmptyExpression, ast.Range{Start: open.Start, End: closeLoc.End})
			expr = &ast.LitNull{Loc: ast.Range{Start: open.End, End: closeLoc.Start}}
			return
		}
		prevWarnings := len(ps.warnings)
		if p.dataShorthand {
			if obj, ok := p.parseObjectShorthand(); ok {
				expr = obj
			} else {
				expr = p.parseExpression()
			}
		} else {
			expr = p.parseExpression()
		}
		ps.autoSkip()
		if loc, ok := ps.consumeStr("}}"); ok {
			closeLoc = loc
			for _, w := range ps.warnings[prevWarnings:] {
				if w.Level() >= LevelFatal {
					fatal = true
				}
			}
			return
		}
		if ps.ended() {
			ps.addWarningAt(ErrMissingExpressionEnd)
			fatal = true
			return
		}
		badStart := ps.position()
		if _, found := ps.skipUntilBefore("}}"); found {
			ps.addWarning(ErrUnexpectedExpressionCharacter, ast.Range{Start: badStart, End: ps.position()})
			closeLoc, _ = ps.consumeStr("}}")
		} else {
			ps.addWarningAt(ErrMissingExpressionEnd)
		}
		fatal = true
	})
	return expr, [2]ast.Range{open, closeLoc}, fatal
}

// rawAttr is a scanned but not yet value-parsed attribute.
type rawAttr struct {
	prefix    string // text before `:`, or an event-binding prefix
	prefixLoc ast.Range
	name      ast.Ident
	hasValue  bool
	quote     byte // '\'' or '"', 0 for bare
	valueIdx  int  // byte offset of the value text
	valueLine uint32
	valueCol  uint32
	valueEnd  int // byte offset just past the value text
	nameKey   string
}

// elemDirectives holds the structural directives peeled off an element.
type elemDirectives struct {
	wxIf     *ast.NamedValue
	wxElif   *ast.NamedValue
	wxElse   *ast.Range
	wxFor    *ast.NamedValue
	forItem  *ast.NamedStr
	forIndex *ast.NamedStr
	forKey   *ast.NamedStr
}

// parseElement parses one start tag and (unless self-closing) its children
// and end tag. It returns nil when the element dissolves into globals
// (imports, scripts, sub-templates).
func (p *parser) parseElement(tmpl *ast.Template) (*ast.Element, *elemDirectives) {
	ps := p.ps
	ltLoc, _ := ps.consumeStr("<")
	tagName := p.parseTagName()
	raws, selfClose, closeLoc, gtLoc, incomplete := p.scanAttributes()

	elem := &ast.Element{
		StartTagLoc: [2]ast.Range{ltLoc, gtLoc},
		CloseLoc:    closeLoc,
	}

	// route the raw attributes and parse their values
	dir := &elemDirectives{}
	builder := newElemBuilder(p, tagName, raws, dir)

	var children []ast.Node
	hasEndTag := false
	var endTagLoc [2]ast.Range
	inlineContent := ""
	var inlineContentLoc ast.Range
	if !selfClose && !incomplete {
		if tagName.Name == "wxs" {
			inlineContent, inlineContentLoc = p.parseRawScriptBody(&hasEndTag, &endTagLoc, &closeLoc)
		} else {
			if builder.templateName != nil {
				// sub-template bodies start with a fresh scope space
				outer := p.scopes
				p.scopes = nil
				children = p.parseChildrenWithScopes(tmpl, builder, dir)
				p.scopes = outer
			} else {
				children = p.parseChildrenWithScopes(tmpl, builder, dir)
			}
			hasEndTag = p.parseEndTag(tagName.Name, &endTagLoc, &closeLoc)
			if !hasEndTag {
				ps.addWarningAt(ErrMissingEndTag)
			}
		}
	}
	if hasEndTag {
		elem.EndTagLoc = &endTagLoc
		elem.CloseLoc = closeLoc
	}

	// elements that dissolve into template globals
	switch tagName.Name {
	case "import":
		if builder.src == nil {
			ps.addWarning(ErrMissingSourcePath, tagName.Loc)
		} else {
			tmpl.Globals.Imports = append(tmpl.Globals.Imports, builder.src.Value)
		}
		return nil, nil
	case "wxs":
		p.finishScript(tmpl, builder, inlineContent, inlineContentLoc, tagName)
		return nil, nil
	case "template":
		if builder.templateName != nil {
			p.finishSubTemplate(tmpl, builder, children, elem, dir)
			return nil, nil
		}
	}

	elem.Kind = builder.finish(children, tagName)
	return elem, dir
}

// parseTagName reads and validates the tag name at the cursor.
func (p *parser) parseTagName() ast.Ident {
	ps := p.ps
	start := ps.position()
	startIdx := ps.idx
	for {
		r, ok := ps.peek(0)
		if !ok || isTemplateWhitespace(r) || r == '/' || r == '>' || r == '<' {
			break
		}
		ps.next()
	}
	name := ps.src[startIdx:ps.idx]
	loc := ast.Range{Start: start, End: ps.position()}
	if colon := strings.IndexByte(name, ':'); colon >= 0 {
		prefixEnd := start
		prefixEnd.UTF16Col += utf16Len(name[:colon])
		ps.addWarning(ErrIllegalNamePrefix, ast.Range{Start: start, End: prefixEnd})
		return ast.Ident{Name: "wx-x", Loc: loc}
	}
	if strings.HasPrefix(name, "wx-") && name != "wx-x" {
		ps.addWarning(ErrIllegalNamePrefix, loc)
		return ast.Ident{Name: "wx-x", Loc: loc}
	}
	for _, r := range name {
		if unicode.IsUpper(r) {
			ps.addWarning(ErrAvoidUppercaseLetters, loc)
			break
		}
	}
	return ast.Ident{Name: name, Loc: loc}
}

// scanAttributes scans the attribute list of a start tag without parsing
// values, recording value extents for the later typed pass.
func (p *parser) scanAttributes() (raws []rawAttr, selfClose bool, closeLoc, gtLoc ast.Range, incomplete bool) {
	ps := p.ps
	for {
		ps.skipWhitespace()
		if ps.ended() {
			ps.addWarningAt(ErrIncompleteTag)
			incomplete = true
			gtLoc = ast.RangeAt(ps.position())
			return
		}
		if loc, ok := ps.consumeStr(">"); ok {
			gtLoc = loc
			return
		}
		if loc, ok := ps.consumeStr("/"); ok {
			ps.skipWhitespace()
			if gt, ok := ps.consumeStr(">"); ok {
				selfClose = true
				closeLoc = loc
				gtLoc = gt
				return
			}
			ps.addWarning(ErrUnexpectedCharacter, ast.Range{Start: loc.Start, End: ps.position()})
			ps.skipUntilBefore(">")
			gtLoc, _ = ps.consumeStr(">")
			selfClose = true
			closeLoc = loc
			return
		}
		raw, ok := p.scanOneAttribute()
		if ok {
			raws = append(raws, raw)
		}
	}
}

func (p *parser) scanOneAttribute() (rawAttr, bool) {
	ps := p.ps
	start := ps.position()
	startIdx := ps.idx
	for {
		r, ok := ps.peek(0)
		if !ok || isTemplateWhitespace(r) || r == '=' || r == '/' || r == '>' {
			break
		}
		ps.next()
	}
	fullName := ps.src[startIdx:ps.idx]
	nameLoc := ast.Range{Start: start, End: ps.position()}
	if fullName == "" || !isAttrNameValid(fullName) {
		ps.addWarning(ErrInvalidAttributeName, nameLoc)
		p.skipAttrValueIfAny()
		return rawAttr{}, false
	}

	raw := rawAttr{nameKey: fullName}
	raw.prefix, raw.prefixLoc, raw.name = splitAttrName(fullName, nameLoc)

	// whitespace around `=` is tolerated but flagged
	if wsLoc, ok := ps.skipWhitespace(); ok {
		if ps.peekStr("=") {
			ps.addWarning(ErrUnexpectedWhitespace, wsLoc)
		} else {
			return raw, true // bare attribute
		}
	}
	if _, ok := ps.consumeStr("="); !ok {
		return raw, true // bare attribute
	}
	if wsLoc, ok := ps.skipWhitespace(); ok {
		ps.addWarning(ErrUnexpectedWhitespace, wsLoc)
	}
	r, ok := ps.peek(0)
	if !ok || r == '>' || r == '/' {
		ps.addWarningAt(ErrMissingAttributeValue)
		return raw, true
	}
	raw.hasValue = true
	if r == '\'' || r == '"' {
		raw.quote = byte(r)
		ps.next()
		raw.valueIdx, raw.valueLine, raw.valueCol = ps.idx, ps.line, ps.utf16Col
		ps.skipUntilBefore(string(r))
		raw.valueEnd = ps.idx
		if !ps.ended() {
			ps.skipBytes(1)
		}
		return raw, true
	}
	raw.valueIdx, raw.valueLine, raw.valueCol = ps.idx, ps.line, ps.utf16Col
	depth := 0
	for {
		r, ok := ps.peek(0)
		if !ok {
			break
		}
		if depth == 0 && (isTemplateWhitespace(r) || r == '>' || r == '/') {
			break
		}
		if ps.peekStr("{{") {
			depth++
			ps.skipBytes(2)
			continue
		}
		if ps.peekStr("}}") {
			depth--
			ps.skipBytes(2)
			continue
		}
		ps.next()
	}
	raw.valueEnd = ps.idx
	return raw, true
}

func (p *parser) skipAttrValueIfAny() {
	ps := p.ps
	ps.skipWhitespace()
	if _, ok := ps.consumeStr("="); !ok {
		return
	}
	ps.skipWhitespace()
	if r, ok := ps.peek(0); ok && (r == '\'' || r == '"') {
		ps.next()
		ps.skipUntilAfter(string(r))
		return
	}
	for {
		r, ok := ps.peek(0)
		if !ok || isTemplateWhitespace(r) || r == '>' || r == '/' {
			return
		}
		ps.next()
	}
}

func isAttrNameValid(name string) bool {
	for _, r := range name {
		if isIdentChar(r) || r == ':' || r == '-' || r == '.' || r == '*' {
			continue
		}
		return false
	}
	return true
}

var eventPrefixes = []string{
	"capture-mut-bind", "capture-catch", "capture-bind", "mut-bind", "catch", "bind",
}

// splitAttrName separates a recognized prefix from the attribute name.
func splitAttrName(fullName string, loc ast.Range) (prefix string, prefixLoc ast.Range, name ast.Ident) {
	if colon := strings.IndexByte(fullName, ':'); colon >= 0 {
		prefix = fullName[:colon]
		prefixLoc = loc
		prefixLoc.End.UTF16Col = loc.Start.UTF16Col + utf16Len(fullName[:colon])
		nameLoc := loc
		nameLoc.Start.UTF16Col = prefixLoc.End.UTF16Col + 1
		return prefix, prefixLoc, ast.Ident{Name: fullName[colon+1:], Loc: nameLoc}
	}
	for _, ep := range eventPrefixes {
		if strings.HasPrefix(fullName, ep) && len(fullName) > len(ep) {
			prefixLoc = loc
			prefixLoc.End.UTF16Col = loc.Start.UTF16Col + uint32(len(ep))
			nameLoc := loc
			nameLoc.Start.UTF16Col = prefixLoc.End.UTF16Col
			return ep, prefixLoc, ast.Ident{Name: fullName[len(ep):], Loc: nameLoc}
		}
	}
	return "", ast.Range{}, ast.Ident{Name: fullName, Loc: loc}
}

// parseRawScriptBody consumes the raw body of an inline `<wxs>` up to its
// end tag; `</wxs` must not occur inside the body.
func (p *parser) parseRawScriptBody(hasEndTag *bool, endTagLoc *[2]ast.Range, closeLoc *ast.Range) (string, ast.Range) {
	ps := p.ps
	start := ps.position()
	content, found := ps.skipUntilBefore("</wxs")
	loc := ast.Range{Start: start, End: ps.position()}
	if !found {
		ps.addWarningAt(ErrMissingEndTag)
		return content, loc
	}
	ltStart := ps.position()
	ps.skipBytes(2) // `</`
	slashLoc := ast.Range{Start: ltStart, End: ps.position()}
	ps.skipBytes(3) // `wxs`
	ps.skipWhitespace()
	gtStart := ps.position()
	if _, ok := ps.consumeStr(">"); !ok {
		ps.skipUntilAfter(">")
	}
	*hasEndTag = true
	*endTagLoc = [2]ast.Range{{Start: ltStart, End: slashLoc.End}, {Start: gtStart, End: ps.position()}}
	*closeLoc = slashLoc
	return content, loc
}

// parseChildrenWithScopes pushes the element's iteration scopes (if any)
// before parsing children, so that the scope stack is visible to nested
// expressions.
func (p *parser) parseChildrenWithScopes(tmpl *ast.Template, b *elemBuilder, dir *elemDirectives) []ast.Node {
	pushed := 0
	if dir.wxFor != nil {
		p.scopes = append(p.scopes, b.itemScope, b.indexScope)
		pushed = 2
	}
	children := p.parseNodes(tmpl, false)
	p.scopes = p.scopes[:len(p.scopes)-pushed]
	return children
}

// parseEndTag consumes `</name ...>` when the name matches; otherwise the
// element closes implicitly and the end tag is left for an ancestor.
func (p *parser) parseEndTag(name string, endTagLoc *[2]ast.Range, closeLoc *ast.Range) bool {
	ps := p.ps
	if !ps.peekStr("</") {
		return false
	}
	matched := false
	ps.tryParse(func() bool {
		ltStart := ps.position()
		ps.skipBytes(1)
		slashStart := ps.position()
		ps.skipBytes(1)
		slashLoc := ast.Range{Start: slashStart, End: ps.position()}
		startIdx := ps.idx
		for {
			r, ok := ps.peek(0)
			if !ok || isTemplateWhitespace(r) || r == '>' || r == '/' {
				break
			}
			ps.next()
		}
		if ps.src[startIdx:ps.idx] != name {
			return false
		}
		restStart := ps.position()
		rest, found := ps.skipUntilBefore(">")
		if strings.TrimFunc(rest, isTemplateWhitespace) != "" {
			ps.addWarning(ErrUnexpectedCharacter, ast.Range{Start: restStart, End: ps.position()})
		}
		gtStart := ps.position()
		if found {
			ps.skipBytes(1)
		}
		*endTagLoc = [2]ast.Range{{Start: ltStart, End: slashLoc.End}, {Start: gtStart, End: ps.position()}}
		*closeLoc = slashLoc
		matched = true
		return true
	})
	return matched
}

// finishScript registers a `<wxs>` element in the template globals.
func (p *parser) finishScript(tmpl *ast.Template, b *elemBuilder, content string, contentLoc ast.Range, tagName ast.Ident) {
	if b.moduleName == nil {
		p.ps.addWarning(ErrMissingModuleName, tagName.Loc)
		return
	}
	if b.src != nil {
		tmpl.Globals.Scripts = append(tmpl.Globals.Scripts, &ast.ScriptRef{
			Module: b.moduleName.Value,
			Path:   b.src.Value,
		})
		return
	}
	tmpl.Globals.Scripts = append(tmpl.Globals.Scripts, &ast.InlineScript{
		Module:       b.moduleName.Value,
		Content:      content,
		ContentRange: contentLoc,
	})
}

// finishSubTemplate registers a `<template name="...">` definition. The
// first definition of a name wins.
func (p *parser) finishSubTemplate(tmpl *ast.Template, b *elemBuilder, children []ast.Node, elem *ast.Element, dir *elemDirectives) {
	// control-flow directives have no meaning on a template definition
	for _, nv := range []*ast.NamedValue{dir.wxIf, dir.wxElif, dir.wxFor} {
		if nv != nil {
			p.ps.addWarning(ErrInvalidAttribute, nv.NameLoc)
		}
	}
	if dir.wxElse != nil {
		p.ps.addWarning(ErrInvalidAttribute, *dir.wxElse)
	}
	name := b.templateName
	for _, st := range tmpl.Globals.SubTemplates {
		if st.Name.Name == name.Value.Name {
			p.ps.addWarning(ErrDuplicatedName, name.Value.Loc)
			return
		}
	}
	tmpl.Globals.SubTemplates = append(tmpl.Globals.SubTemplates, ast.SubTemplate{
		Name:        name.Value,
		Children:    children,
		StartTagLoc: elem.StartTagLoc,
		EndTagLoc:   elem.EndTagLoc,
		CloseLoc:    elem.CloseLoc,
	})
}

// foldElement appends the element to the sibling list, wrapping it in
// For/If structures as its directives require and folding elif/else into
// the preceding If.
func (p *parser) foldElement(nodes *[]ast.Node, lastIf *ast.If, elem *ast.Element, dir *elemDirectives) *ast.If {
	if dir == nil {
		*nodes = append(*nodes, elem)
		return nil
	}
	inner := ast.Node(elem)

	// `wx:elif` / `wx:else` without a directly preceding `wx:if`
	if dir.wxFor == nil && dir.wxIf == nil {
		if dir.wxElif != nil {
			if lastIf != nil && lastIf.Else == nil {
				lastIf.Branches = append(lastIf.Branches, ast.IfBranch{
					Loc:      dir.wxElif.NameLoc,
					Cond:     dir.wxElif.Value,
					Children: p.branchChildren(elem),
				})
				return lastIf
			}
			p.ps.addWarning(ErrInvalidAttribute, dir.wxElif.NameLoc)
			*nodes = append(*nodes, inner)
			return nil
		}
		if dir.wxElse != nil {
			if lastIf != nil && lastIf.Else == nil {
				lastIf.Else = &ast.ElseBranch{Loc: *dir.wxElse, Children: p.branchChildren(elem)}
				return lastIf
			}
			p.ps.addWarning(ErrInvalidAttribute, *dir.wxElse)
			*nodes = append(*nodes, inner)
			return nil
		}
		*nodes = append(*nodes, inner)
		return nil
	}

	if dir.wxFor != nil {
		if dir.wxElif != nil {
			p.ps.addWarning(ErrInvalidAttribute, dir.wxElif.NameLoc)
		}
		if dir.wxElse != nil {
			p.ps.addWarning(ErrInvalidAttribute, *dir.wxElse)
		}
	}

	var newIf *ast.If
	if dir.wxIf != nil {
		newIf = &ast.If{Branches: []ast.IfBranch{{
			Loc:      dir.wxIf.NameLoc,
			Cond:     dir.wxIf.Value,
			Children: p.branchChildren(elem),
		}}}
		ifElem := &ast.Element{
			StartTagLoc: elem.StartTagLoc,
			EndTagLoc:   elem.EndTagLoc,
			CloseLoc:    elem.CloseLoc,
			Kind:        newIf,
		}
		inner = ifElem
	}
	if dir.wxFor != nil {
		forKind := &ast.For{
			List:     *dir.wxFor,
			Children: []ast.Node{inner},
		}
		if dir.wxIf == nil {
			forKind.Children = p.branchChildren(elem)
		}
		fillForNames(forKind, dir)
		forElem := &ast.Element{
			StartTagLoc: elem.StartTagLoc,
			EndTagLoc:   elem.EndTagLoc,
			CloseLoc:    elem.CloseLoc,
			Kind:        forKind,
		}
		*nodes = append(*nodes, forElem)
		return nil
	}
	*nodes = append(*nodes, inner)
	return newIf
}

// branchChildren returns the nodes a control branch holds for the element:
// a bare `<block>` dissolves into its children, anything else is the
// element itself.
func (p *parser) branchChildren(elem *ast.Element) []ast.Node {
	if pure, ok := elem.Kind.(*ast.Pure); ok {
		if len(pure.EventBindings) == 0 && len(pure.Marks) == 0 && pure.Slot == nil {
			return pure.Children
		}
	}
	return []ast.Node{elem}
}

// trimLeadingTextWhitespace drops the whitespace at the very start of the
// template's first text node.
func trimLeadingTextWhitespace(v ast.Value) {
	switch v := v.(type) {
	case *ast.StaticValue:
		v.Value = strings.TrimLeftFunc(v.Value, isTemplateWhitespace)
	case *ast.DynamicValue:
		e := v.Expr
		for {
			b, ok := e.(*ast.Binary)
			if !ok || b.Op != "+" {
				break
			}
			e = b.Left
		}
		if ls, ok := e.(*ast.LitStr); ok {
			ls.Value = strings.TrimLeftFunc(ls.Value, isTemplateWhitespace)
		}
	}
}

func fillForNames(forKind *ast.For, dir *elemDirectives) {
	if dir.forItem != nil {
		forKind.ItemName = *dir.forItem
	} else {
		forKind.ItemName = ast.NamedStr{NameLoc: dir.wxFor.NameLoc, Value: ast.StrName{Name: "item", Loc: dir.wxFor.NameLoc}}
	}
	if dir.forIndex != nil {
		forKind.IndexName = *dir.forIndex
	} else {
		forKind.IndexName = ast.NamedStr{NameLoc: dir.wxFor.NameLoc, Value: ast.StrName{Name: "index", Loc: dir.wxFor.NameLoc}}
	}
	if dir.forKey != nil {
		forKind.Key = *dir.forKey
	}
}
