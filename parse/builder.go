package parse

import (
	"strings"

	"github.com/wxtool/wxc/ast"
)

// elemBuilder routes scanned attributes into the typed slots of an element
// kind, parsing attribute values in two waves: static-valued attributes
// first (they may introduce iteration scopes), then everything that may
// contain data bindings, with the scopes visible.
type elemBuilder struct {
	p       *parser
	tagName ast.Ident

	attributes    []ast.Attribute
	class         ast.ClassAttribute
	style         ast.StyleAttribute
	changeAttrs   []ast.Attribute
	workletAttrs  []ast.StaticAttribute
	eventBindings []ast.EventBinding
	marks         []ast.Attribute
	data          []ast.Attribute
	generics      []ast.StaticAttribute
	extraAttr     []ast.StaticAttribute
	slot          *ast.NamedValue
	slotValueRefs []ast.StaticAttribute
	slotName      *ast.NamedValue

	templateName *ast.NamedStr
	templateIs   *ast.NamedValue
	templateData *ast.NamedValue
	src          *ast.NamedStr
	moduleName   *ast.NamedStr

	itemScope  ast.StrName
	indexScope ast.StrName
}

func newElemBuilder(p *parser, tagName ast.Ident, raws []rawAttr, dir *elemDirectives) *elemBuilder {
	b := &elemBuilder{p: p, tagName: tagName}

	raws = b.dropDuplicates(raws)

	// wave one: names that bind statically and may introduce scopes
	var deferred []rawAttr
	for _, raw := range raws {
		if !b.routeStatic(raw, dir) {
			deferred = append(deferred, raw)
		}
	}
	b.fillScopes(dir)

	// the list value of `wx:for` is evaluated outside the iteration scope
	for i := 0; i < len(deferred); {
		raw := deferred[i]
		if raw.prefix == "wx" && raw.name.Name == "for" {
			dir.wxFor = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValue(raw)}
			deferred = append(deferred[:i], deferred[i+1:]...)
			continue
		}
		i++
	}

	// wave two: everything else sees the iteration scopes
	pushed := 0
	if dir.wxFor != nil {
		p.scopes = append(p.scopes, b.itemScope, b.indexScope)
		pushed = 2
	}
	for _, raw := range deferred {
		b.routeDynamic(raw, dir)
	}
	p.scopes = p.scopes[:len(p.scopes)-pushed]
	return b
}

// dropDuplicates removes repeated attributes, keeping the first.
func (b *elemBuilder) dropDuplicates(raws []rawAttr) []rawAttr {
	seen := make(map[string]bool, len(raws))
	out := raws[:0]
	for _, raw := range raws {
		if seen[raw.nameKey] {
			b.p.ps.addWarning(ErrDuplicatedAttribute, raw.name.Loc)
			continue
		}
		seen[raw.nameKey] = true
		out = append(out, raw)
	}
	return out
}

// routeStatic handles attributes whose value is a static string; it
// reports whether the attribute was consumed.
func (b *elemBuilder) routeStatic(raw rawAttr, dir *elemDirectives) bool {
	switch raw.prefix {
	case "wx":
		switch raw.name.Name {
		case "for-item":
			v := b.parseStaticValue(raw)
			b.checkScopeName(v)
			dir.forItem = &ast.NamedStr{NameLoc: raw.name.Loc, Value: v}
			return true
		case "for-index":
			v := b.parseStaticValue(raw)
			b.checkScopeName(v)
			dir.forIndex = &ast.NamedStr{NameLoc: raw.name.Loc, Value: v}
			return true
		case "key":
			v := b.parseStaticValue(raw)
			dir.forKey = &ast.NamedStr{NameLoc: raw.name.Loc, Value: v}
			return true
		case "else":
			if raw.hasValue {
				if v := b.parseValue(raw); !v.IsEmpty() {
					b.p.ps.addWarning(ErrInvalidAttributeValue, v.Location())
				}
			}
			loc := raw.name.Loc
			dir.wxElse = &loc
			return true
		}
	case "worklet":
		b.workletAttrs = append(b.workletAttrs, ast.StaticAttribute{
			Name: raw.name, Value: b.parseStaticValue(raw), PrefixLoc: raw.prefixLoc,
		})
		return true
	case "generic":
		b.generics = append(b.generics, ast.StaticAttribute{
			Name: raw.name, Value: b.parseStaticValue(raw), PrefixLoc: raw.prefixLoc,
		})
		return true
	case "extra-attr":
		b.extraAttr = append(b.extraAttr, ast.StaticAttribute{
			Name: raw.name, Value: b.parseStaticValue(raw), PrefixLoc: raw.prefixLoc,
		})
		return true
	case "slot":
		v := b.parseStaticValue(raw)
		b.checkScopeName(v)
		b.slotValueRefs = append(b.slotValueRefs, ast.StaticAttribute{
			Name: raw.name, Value: v, PrefixLoc: raw.prefixLoc,
		})
		return true
	case "":
		switch raw.name.Name {
		case "name":
			if b.tagName.Name == "template" {
				v := b.parseStaticValue(raw)
				b.templateName = &ast.NamedStr{NameLoc: raw.name.Loc, Value: v}
				return true
			}
		case "src":
			switch b.tagName.Name {
			case "import", "include", "wxs":
				v := b.parseStaticValue(raw)
				b.src = &ast.NamedStr{NameLoc: raw.name.Loc, Value: v}
				return true
			}
		case "module":
			if b.tagName.Name == "wxs" {
				v := b.parseStaticValue(raw)
				b.moduleName = &ast.NamedStr{NameLoc: raw.name.Loc, Value: v}
				return true
			}
		}
	}
	return false
}

// routeDynamic handles the attributes that may carry data bindings.
func (b *elemBuilder) routeDynamic(raw rawAttr, dir *elemDirectives) {
	ps := b.p.ps
	switch raw.prefix {
	case "wx":
		switch raw.name.Name {
		case "if":
			dir.wxIf = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValue(raw)}
		case "elif":
			dir.wxElif = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValue(raw)}
		default:
			ps.addWarning(ErrInvalidAttributeName, raw.name.Loc)
		}
		return
	case "model":
		prefixLoc := raw.prefixLoc
		b.attributes = append(b.attributes, ast.Attribute{
			Name: raw.name, Value: b.parseValue(raw), PrefixLoc: &prefixLoc, IsModel: true,
		})
		return
	case "change":
		prefixLoc := raw.prefixLoc
		b.changeAttrs = append(b.changeAttrs, ast.Attribute{
			Name: raw.name, Value: b.parseValue(raw), PrefixLoc: &prefixLoc,
		})
		return
	case "data":
		prefixLoc := raw.prefixLoc
		b.data = append(b.data, ast.Attribute{
			Name: raw.name, Value: b.parseValue(raw), PrefixLoc: &prefixLoc,
		})
		return
	case "mark":
		prefixLoc := raw.prefixLoc
		b.marks = append(b.marks, ast.Attribute{
			Name: raw.name, Value: b.parseValue(raw), PrefixLoc: &prefixLoc,
		})
		return
	case "bind", "catch", "mut-bind", "capture-bind", "capture-catch", "capture-mut-bind":
		b.eventBindings = append(b.eventBindings, ast.EventBinding{
			Name:      raw.name,
			Value:     b.parseValue(raw),
			IsCatch:   strings.Contains(raw.prefix, "catch"),
			IsMut:     strings.Contains(raw.prefix, "mut-bind"),
			IsCapture: strings.HasPrefix(raw.prefix, "capture-"),
			PrefixLoc: raw.prefixLoc,
		})
		return
	case "class", "style":
		// the structured multiple-segment forms are not supported
		ps.addWarning(ErrUnsupportedSyntax, raw.name.Loc)
		return
	case "":
		switch raw.name.Name {
		case "slot":
			b.slot = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValue(raw)}
			return
		case "class":
			if b.tagName.Name != "template" {
				b.class = ast.ClassAttribute{Kind: ast.ClassAttrString, Loc: raw.name.Loc, Value: b.parseValue(raw)}
				return
			}
		case "style":
			if b.tagName.Name != "template" {
				b.style = ast.StyleAttribute{Kind: ast.StyleAttrString, Loc: raw.name.Loc, Value: b.parseValue(raw)}
				return
			}
		case "is":
			if b.tagName.Name == "template" {
				b.templateIs = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValue(raw)}
				return
			}
		case "data":
			if b.tagName.Name == "template" {
				b.templateData = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValueShorthand(raw)}
				return
			}
		case "name":
			if b.tagName.Name == "slot" {
				b.slotName = &ast.NamedValue{NameLoc: raw.name.Loc, Value: b.parseValue(raw)}
				return
			}
		}
		b.attributes = append(b.attributes, ast.Attribute{Name: raw.name, Value: b.parseValue(raw)})
		return
	}
	ps.addWarning(ErrIllegalNamePrefix, raw.prefixLoc)
}

func (b *elemBuilder) fillScopes(dir *elemDirectives) {
	b.itemScope = ast.StrName{Name: "item"}
	b.indexScope = ast.StrName{Name: "index"}
	if dir.forItem != nil {
		b.itemScope = dir.forItem.Value
	}
	if dir.forIndex != nil {
		b.indexScope = dir.forIndex.Value
	}
}

func (b *elemBuilder) checkScopeName(v ast.StrName) {
	if v.Name == "" {
		return
	}
	for i, r := range v.Name {
		if i == 0 && isIdentStartChar(r) || i > 0 && isIdentChar(r) {
			continue
		}
		if v.Name == "*this" {
			return
		}
		b.p.ps.addWarning(ErrInvalidScopeName, v.Loc)
		return
	}
}

// finish validates the routed attributes against the element kind and
// produces it.
func (b *elemBuilder) finish(children []ast.Node, tagName ast.Ident) ast.ElementKind {
	ps := b.p.ps
	switch tagName.Name {
	case "block":
		for _, a := range b.attributes {
			ps.addWarning(ErrInvalidAttribute, a.Name.Loc)
		}
		return &ast.Pure{
			EventBindings: b.eventBindings,
			Marks:         b.marks,
			Children:      children,
			Slot:          b.slot,
		}
	case "template":
		if b.templateIs != nil {
			b.rejectChildren(children)
			data := ast.NamedValue{NameLoc: b.templateIs.NameLoc, Value: &ast.StaticValue{}}
			if b.templateData != nil {
				data = *b.templateData
			}
			return &ast.TemplateRef{
				Target:        *b.templateIs,
				Data:          data,
				EventBindings: b.eventBindings,
				Marks:         b.marks,
				Slot:          b.slot,
			}
		}
	case "include":
		if b.src == nil {
			ps.addWarning(ErrMissingSourcePath, tagName.Loc)
			b.src = &ast.NamedStr{NameLoc: tagName.Loc, Value: ast.StrName{Loc: tagName.Loc}}
		}
		b.rejectChildren(children)
		return &ast.Include{
			Path:          *b.src,
			EventBindings: b.eventBindings,
			Marks:         b.marks,
			Slot:          b.slot,
		}
	case "slot":
		b.rejectChildren(children)
		name := ast.NamedValue{NameLoc: tagName.Loc, Value: &ast.StaticValue{}}
		if b.slotName != nil {
			name = *b.slotName
		}
		return &ast.SlotElem{
			Name:          name,
			Values:        b.attributes,
			EventBindings: b.eventBindings,
			Marks:         b.marks,
			Slot:          b.slot,
		}
	}
	return &ast.Normal{
		TagName:           tagName,
		Attributes:        b.attributes,
		Class:             b.class,
		Style:             b.style,
		ChangeAttributes:  b.changeAttrs,
		WorkletAttributes: b.workletAttrs,
		EventBindings:     b.eventBindings,
		Marks:             b.marks,
		Data:              b.data,
		Children:          children,
		Generics:          b.generics,
		ExtraAttr:         b.extraAttr,
		Slot:              b.slot,
		SlotValueRefs:     b.slotValueRefs,
	}
}

// rejectChildren reports child nodes on elements that take none.
func (b *elemBuilder) rejectChildren(children []ast.Node) {
	if len(children) == 0 {
		return
	}
	loc := ast.Range{
		Start: children[0].Location().Start,
		End:   children[len(children)-1].Location().End,
	}
	b.p.ps.addWarning(ErrChildNodesNotAllowed, loc)
}

// parseValue parses the recorded value extent of an attribute, entities
// and interpolations included.
func (b *elemBuilder) parseValue(raw rawAttr) ast.Value {
	return b.parseValueOpts(raw, false)
}

// parseValueShorthand is parseValue with the brace-less object form
// enabled inside interpolations.
func (b *elemBuilder) parseValueShorthand(raw rawAttr) ast.Value {
	return b.parseValueOpts(raw, true)
}

func (b *elemBuilder) parseValueOpts(raw rawAttr, dataShorthand bool) ast.Value {
	if !raw.hasValue {
		return &ast.StaticValue{Loc: ast.RangeAt(raw.name.Loc.End)}
	}
	sub := &state{
		path: b.p.ps.path,
		src:  b.p.ps.src[:raw.valueEnd],
		idx:  raw.valueIdx,
		line: raw.valueLine, utf16Col: raw.valueCol,
	}
	subParser := &parser{ps: sub, scopes: b.p.scopes, dataShorthand: dataShorthand}
	v := subParser.parseValueBody()
	b.p.ps.warnings = append(b.p.ps.warnings, sub.warnings...)
	return v
}

// parseStaticValue parses an attribute value that must be static; a data
// binding is flagged and replaced by the empty string.
func (b *elemBuilder) parseStaticValue(raw rawAttr) ast.StrName {
	v := b.parseValue(raw)
	switch v := v.(type) {
	case *ast.StaticValue:
		return ast.StrName{Name: v.Value, Loc: v.Loc}
	default:
		b.p.ps.addWarning(ErrDataBindingNotAllowed, v.Location())
		return ast.StrName{Loc: v.Location()}
	}
}

// parseValueBody parses the body of an attribute value (bounded by the
// sub-state's source slice).
func (p *parser) parseValueBody() ast.Value {
	ps := p.ps
	start := ps.position()
	type part struct {
		lit      string
		litLoc   ast.Range
		expr     ast.Expression
		braceLoc [2]ast.Range
	}
	var parts []part
	var lit strings.Builder
	litStart := start
	flushLit := func() {
		if lit.Len() > 0 {
			parts = append(parts, part{lit: lit.String(), litLoc: ast.Range{Start: litStart, End: ps.position()}})
			lit.Reset()
		}
		litStart = ps.position()
	}
	for !ps.ended() {
		if ps.peekStr("{{") {
			flushLit()
			expr, braceLoc, fatal := p.parseInterpolation()
			if fatal {
				return &ast.StaticValue{Loc: ast.RangeAt(start)}
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
		return &ast.StaticValue{Loc: ast.RangeAt(start)}
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
		}
	}
	return p.assembleDynamic(func(yield func(string, ast.Range, ast.Expression, [2]ast.Range)) {
		for _, pt := range parts {
			yield(pt.lit, pt.litLoc, pt.expr, pt.braceLoc)
		}
	})
}
