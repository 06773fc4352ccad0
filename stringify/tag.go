package stringify

import (
	"strings"

	"github.com/wxtool/wxc/ast"
)

// Canonical markup emission. The output is a re-parseable template:
// If unfolds back into `<block wx:if>` chains, For becomes `<block wx:for>`,
// Pure becomes `<block>`.

func (s *Stringifier) writeTemplate(t *ast.Template) {
	mode := exprMode{mangling: s.opts.Mangling}
	wrote := false
	group := func(f func()) {
		if wrote {
			s.sepLine()
		}
		wrote = true
		f()
	}
	if len(t.Globals.Imports) > 0 {
		group(func() {
			for _, imp := range t.Globals.Imports {
				s.writeLine(func() {
					s.WriteStr("<import src=")
					s.WriteStrNameQuoted(imp)
					s.writeSelfClose()
				})
			}
		})
	}
	if len(t.Globals.Scripts) > 0 {
		group(func() {
			for _, script := range t.Globals.Scripts {
				s.writeScript(script)
			}
		})
	}
	if len(t.Globals.SubTemplates) > 0 {
		group(func() {
			for _, st := range t.Globals.SubTemplates {
				s.writeSubTemplate(st, mode)
			}
		})
	}
	if len(t.Content) > 0 {
		group(func() {
			for _, n := range t.Content {
				s.writeNode(n, mode)
			}
		})
	}
}

func (s *Stringifier) writeSelfClose() {
	if s.opts.Minimize {
		s.WriteStr("/>")
	} else {
		s.WriteStr(" />")
	}
}

func (s *Stringifier) writeScript(script ast.Script) {
	switch script := script.(type) {
	case *ast.InlineScript:
		s.writeLine(func() {
			s.WriteStr("<wxs module=")
			s.WriteStrNameQuoted(script.Module)
			if script.Content == "" {
				s.writeSelfClose()
				return
			}
			s.WriteStr(">")
			// an inner `</wxs` would end the script early
			s.WriteToken(strings.ReplaceAll(script.Content, "</wxs", "< /wxs"), "", script.ContentRange)
			s.WriteStr("</wxs>")
		})
	case *ast.ScriptRef:
		s.writeLine(func() {
			s.WriteStr("<wxs module=")
			s.WriteStrNameQuoted(script.Module)
			s.WriteStr(" src=")
			s.WriteStrNameQuoted(script.Path)
			s.writeSelfClose()
		})
	}
}

func (s *Stringifier) writeSubTemplate(st ast.SubTemplate, mode exprMode) {
	locs := tagLocs{
		open:    st.StartTagLoc[0],
		openEnd: st.StartTagLoc[1],
		close:   st.CloseLoc,
	}
	if st.EndTagLoc != nil {
		locs.endOpen = st.EndTagLoc[0]
		locs.endEnd = st.EndTagLoc[1]
		locs.hasEndTag = true
	} else {
		locs.endOpen = st.StartTagLoc[0]
		locs.endEnd = st.StartTagLoc[1]
	}
	name := st.Name
	s.scopeSpace(func() {
		s.writeFullTag(locs, func() {
			s.WriteStr("template name=")
			s.WriteStrNameQuoted(name)
		}, "template", nil, st.Children, mode)
	})
}

func (s *Stringifier) writeNode(n ast.Node, mode exprMode) {
	switch n := n.(type) {
	case *ast.TextNode:
		s.writeLine(func() { s.writeTextValue(n.Value, mode) })
	case *ast.Element:
		s.writeElement(n, mode)
	case *ast.Comment:
		// dropped on canonical output
	case *ast.UnknownMetaTag:
		s.writeLine(func() {
			s.WriteStr("<!")
			s.WriteToken(escapeHTMLText(n.Text), "", n.Loc)
			s.WriteStr(">")
		})
	}
}

// tagLocs carries the token locations an element maps back to.
type tagLocs struct {
	open      ast.Range // `<` of the start tag
	openEnd   ast.Range // `>` of the start tag
	close     ast.Range // the `/`
	endOpen   ast.Range // `<` of the end tag
	endEnd    ast.Range // `>` of the end tag
	hasEndTag bool
}

func elemTagLocs(e *ast.Element) tagLocs {
	l := tagLocs{
		open:    e.StartTagLoc[0],
		openEnd: e.StartTagLoc[1],
		close:   e.CloseLoc,
	}
	if e.EndTagLoc != nil {
		l.endOpen = e.EndTagLoc[0]
		l.endEnd = e.EndTagLoc[1]
		l.hasEndTag = true
	} else {
		l.endOpen = e.StartTagLoc[0]
		l.endEnd = e.StartTagLoc[1]
	}
	return l
}

// attrWriter is one attribute of an open tag, measured for the line-width
// limit before emission.
type attrWriter func(w *Stringifier)

func (s *Stringifier) writeElement(e *ast.Element, mode exprMode) {
	locs := elemTagLocs(e)
	switch k := e.Kind.(type) {
	case *ast.If:
		for i, br := range k.Branches {
			name := "wx:if"
			if i > 0 {
				name = "wx:elif"
			}
			br := br
			s.writeOpenCloseTag(locs, "block",
				[]attrWriter{s.namedAttr(name, br.Loc, br.Cond, mode)},
				br.Children, mode)
		}
		if k.Else != nil {
			loc := k.Else.Loc
			s.writeOpenCloseTag(locs, "block",
				[]attrWriter{func(w *Stringifier) {
					w.WriteToken("wx:else", "wx:else", loc)
				}},
				k.Else.Children, mode)
		}
	case *ast.Normal:
		var attrs []attrWriter
		if k.Class.Kind == ast.ClassAttrString {
			attrs = append(attrs, s.namedAttr("class", k.Class.Loc, k.Class.Value, mode))
		}
		if k.Style.Kind == ast.StyleAttrString {
			attrs = append(attrs, s.namedAttr("style", k.Style.Loc, k.Style.Value, mode))
		}
		for _, a := range k.Attributes {
			a := a
			prefix := ""
			if a.IsModel {
				prefix = "model"
			}
			attrs = append(attrs, s.prefixedAttr(prefix, a, mode))
		}
		for _, a := range k.ChangeAttributes {
			attrs = append(attrs, s.prefixedAttr("change", a, mode))
		}
		for _, a := range k.WorkletAttributes {
			attrs = append(attrs, s.staticAttr("worklet", a))
		}
		attrs = append(attrs, s.commonAttrs(k.EventBindings, k.Marks, k.Slot, mode)...)
		for _, a := range k.Data {
			attrs = append(attrs, s.prefixedAttr("data", a, mode))
		}
		for _, a := range k.Generics {
			attrs = append(attrs, s.staticAttr("generic", a))
		}
		for _, a := range k.ExtraAttr {
			attrs = append(attrs, s.staticAttr("extra-attr", a))
		}
		for _, a := range k.SlotValueRefs {
			attrs = append(attrs, s.staticAttr("slot", a))
		}
		tagName := k.TagName
		s.writeFullTag(locs, func() { s.WriteIdent(tagName, true) }, k.TagName.Name, attrs, k.Children, mode)
	case *ast.Pure:
		attrs := s.commonAttrs(k.EventBindings, k.Marks, k.Slot, mode)
		s.writeOpenCloseTag(locs, "block", attrs, k.Children, mode)
	case *ast.For:
		s.scopeSpace(func() {
			var attrs []attrWriter
			attrs = append(attrs, s.namedAttr("wx:for", k.List.NameLoc, k.List.Value, mode))
			item := s.AddScope(k.ItemName.Value.Name)
			index := s.AddScope(k.IndexName.Value.Name)
			if item != "" {
				attrs = append(attrs, s.namedStaticAttr("wx:for-item", k.ItemName.NameLoc, ast.StrName{Name: item, Loc: k.ItemName.Value.Loc}))
			}
			if index != "" {
				attrs = append(attrs, s.namedStaticAttr("wx:for-index", k.IndexName.NameLoc, ast.StrName{Name: index, Loc: k.IndexName.Value.Loc}))
			}
			if k.Key.Value.Name != "" {
				attrs = append(attrs, s.namedStaticAttr("wx:key", k.Key.NameLoc, k.Key.Value))
			}
			s.writeOpenCloseTag(locs, "block", attrs, k.Children, mode)
		})
	case *ast.TemplateRef:
		var attrs []attrWriter
		attrs = append(attrs, s.namedAttr("is", k.Target.NameLoc, k.Target.Value, mode))
		if !k.Data.Value.IsEmpty() {
			attrs = append(attrs, s.namedAttr("data", k.Data.NameLoc, k.Data.Value, mode))
		}
		attrs = append(attrs, s.commonAttrs(k.EventBindings, k.Marks, k.Slot, mode)...)
		s.writeOpenCloseTag(locs, "template", attrs, nil, mode)
	case *ast.Include:
		var attrs []attrWriter
		attrs = append(attrs, s.namedStaticAttr("src", k.Path.NameLoc, k.Path.Value))
		attrs = append(attrs, s.commonAttrs(k.EventBindings, k.Marks, k.Slot, mode)...)
		s.writeOpenCloseTag(locs, "include", attrs, nil, mode)
	case *ast.SlotElem:
		var attrs []attrWriter
		if !k.Name.Value.IsEmpty() {
			attrs = append(attrs, s.namedAttr("name", k.Name.NameLoc, k.Name.Value, mode))
		}
		attrs = append(attrs, s.commonAttrs(k.EventBindings, k.Marks, k.Slot, mode)...)
		for _, a := range k.Values {
			attrs = append(attrs, s.prefixedAttr("", a, mode))
		}
		s.writeOpenCloseTag(locs, "slot", attrs, nil, mode)
	}
}

// commonAttrs renders slot, marks and event bindings in their fixed order.
func (s *Stringifier) commonAttrs(events []ast.EventBinding, marks []ast.Attribute, slot *ast.NamedValue, mode exprMode) []attrWriter {
	var attrs []attrWriter
	if slot != nil {
		attrs = append(attrs, s.namedAttr("slot", slot.NameLoc, slot.Value, mode))
	}
	for _, a := range marks {
		attrs = append(attrs, s.prefixedAttr("mark", a, mode))
	}
	for _, ev := range events {
		ev := ev
		prefix := "bind"
		switch {
		case ev.IsCatch && ev.IsCapture:
			prefix = "capture-catch"
		case ev.IsCatch:
			prefix = "catch"
		case ev.IsMut && ev.IsCapture:
			prefix = "capture-mut-bind"
		case ev.IsMut:
			prefix = "mut-bind"
		case ev.IsCapture:
			prefix = "capture-bind"
		}
		attrs = append(attrs, func(w *Stringifier) {
			w.WriteToken(prefix, "", ev.PrefixLoc)
			w.WriteStr(":")
			w.WriteIdent(ev.Name, true)
			if !ev.Value.IsEmpty() {
				w.WriteStr(`="`)
				w.writeAttrValue(ev.Value, mode)
				w.WriteStr(`"`)
			}
		})
	}
	return attrs
}

func (s *Stringifier) prefixedAttr(prefix string, a ast.Attribute, mode exprMode) attrWriter {
	return func(w *Stringifier) {
		if prefix != "" {
			loc := a.Name.Loc
			if a.PrefixLoc != nil {
				loc = *a.PrefixLoc
			}
			w.WriteToken(prefix, "", loc)
			w.WriteStr(":")
		}
		w.WriteIdent(a.Name, true)
		if !a.Value.IsEmpty() {
			w.WriteStr(`="`)
			w.writeAttrValue(a.Value, mode)
			w.WriteStr(`"`)
		}
	}
}

func (s *Stringifier) staticAttr(prefix string, a ast.StaticAttribute) attrWriter {
	return func(w *Stringifier) {
		w.WriteToken(prefix, "", a.PrefixLoc)
		w.WriteStr(":")
		w.WriteIdent(a.Name, true)
		if a.Value.Name != "" {
			w.WriteStr("=")
			w.WriteStrNameQuoted(a.Value)
		}
	}
}

func (s *Stringifier) namedAttr(name string, loc ast.Range, v ast.Value, mode exprMode) attrWriter {
	return func(w *Stringifier) {
		w.WriteToken(name, name, loc)
		if !v.IsEmpty() {
			w.WriteStr(`="`)
			w.writeAttrValue(v, mode)
			w.WriteStr(`"`)
		}
	}
}

func (s *Stringifier) namedStaticAttr(name string, loc ast.Range, v ast.StrName) attrWriter {
	return func(w *Stringifier) {
		w.WriteToken(name, name, loc)
		if v.Name != "" {
			w.WriteStr("=")
			w.WriteStrNameQuoted(v)
		}
	}
}

// writeOpenCloseTag writes a tag with a synthesized name (block, template,
// include, slot).
func (s *Stringifier) writeOpenCloseTag(locs tagLocs, tagName string, attrs []attrWriter, children []ast.Node, mode exprMode) {
	s.writeFullTag(locs, func() { s.WriteStr(tagName) }, tagName, attrs, children, mode)
}

// writeFullTag lays out one element: attribute-per-line breaking when the
// open tag exceeds the width limit, inline children when they are all
// text, a sub-block otherwise.
func (s *Stringifier) writeFullTag(locs tagLocs, head func(), tagName string, attrs []attrWriter, children []ast.Node, mode exprMode) {
	inlineChildren := len(children) > 0 && allText(children)
	s.writeLine(func() {
		s.WriteToken("<", "", locs.open)
		head()

		breakAttrs := false
		if !s.opts.Minimize && len(attrs) > 0 {
			col := s.utf16Col
			for _, a := range attrs {
				w, single := s.measure(func(probe *Stringifier) { a(probe) })
				if !single {
					breakAttrs = true
					break
				}
				col += 1 + w
				if int(col) > s.opts.LineWidthLimit {
					breakAttrs = true
					break
				}
			}
		}
		if breakAttrs {
			s.WriteStr("\n")
			s.subBlock(func() {
				for _, a := range attrs {
					s.writeLine(func() { a(s) })
				}
			})
			s.writeIndent()
		} else {
			for _, a := range attrs {
				s.WriteStr(" ")
				a(s)
			}
		}

		if len(children) == 0 {
			if !s.opts.Minimize && !breakAttrs {
				s.WriteStr(" ")
			}
			s.WriteToken("/", "", locs.close)
			s.WriteToken(">", "", locs.openEnd)
			return
		}
		s.WriteToken(">", "", locs.openEnd)
		if inlineChildren || s.opts.Minimize {
			for _, c := range children {
				s.writeInlineNode(c, mode)
			}
		} else {
			s.WriteStr("\n")
			s.subBlock(func() {
				for _, c := range children {
					s.writeNode(c, mode)
				}
			})
			s.writeIndent()
		}
		s.WriteToken("<", "", locs.endOpen)
		s.WriteToken("/", "", locs.close)
		if tagName != "" {
			s.WriteStr(tagName)
		}
		s.WriteToken(">", "", locs.endEnd)
	})
}

// writeInlineNode writes a child node without line structure.
func (s *Stringifier) writeInlineNode(n ast.Node, mode exprMode) {
	switch n := n.(type) {
	case *ast.TextNode:
		s.writeTextValue(n.Value, mode)
	case *ast.Element:
		s.writeElement(n, mode)
	case *ast.UnknownMetaTag:
		s.WriteStr("<!")
		s.WriteToken(escapeHTMLText(n.Text), "", n.Loc)
		s.WriteStr(">")
	}
}

func allText(nodes []ast.Node) bool {
	for _, n := range nodes {
		if _, ok := n.(*ast.TextNode); !ok {
			return false
		}
	}
	return true
}

// writeTextValue emits a text-position value: escaped text when static,
// one joined `{{...}}` when dynamic.
func (s *Stringifier) writeTextValue(v ast.Value, mode exprMode) {
	switch v := v.(type) {
	case *ast.StaticValue:
		s.WriteToken(escapeHTMLText(v.Value), "", v.Loc)
	case *ast.DynamicValue:
		s.WriteToken("{{", "", v.BraceLoc[0])
		s.writeExpr(v.Expr, 0, mode)
		s.WriteToken("}}", "", v.BraceLoc[1])
	}
}

// writeAttrValue emits an attribute-position value; dynamic values re-split
// into alternating literal and `{{...}}` chunks at coercion boundaries so
// that the original interpolation shape is recovered.
func (s *Stringifier) writeAttrValue(v ast.Value, mode exprMode) {
	switch v := v.(type) {
	case *ast.StaticValue:
		s.WriteToken(escapeHTMLQuote(v.Value), "", v.Loc)
	case *ast.DynamicValue:
		s.splitAttrExpr(v.Expr, v.BraceLoc[0], v.BraceLoc[1], mode)
	}
}

func (s *Stringifier) splitAttrExpr(e ast.Expression, start, end ast.Range, mode exprMode) {
	switch e := e.(type) {
	case *ast.LitStr:
		s.WriteToken(escapeHTMLQuote(e.Value), "", e.Loc)
		return
	case *ast.ToStringWithoutUndefined:
		s.WriteToken("{{", "", start)
		s.writeExpr(e.Arg, 0, mode)
		s.WriteToken("}}", "", e.Loc)
		return
	case *ast.Binary:
		if e.Op == "+" && (isSplitBoundary(e.Left) || isSplitBoundary(e.Right)) {
			s.splitAttrExpr(e.Left, start, e.OpLoc, mode)
			s.splitAttrExpr(e.Right, e.OpLoc, end, mode)
			return
		}
	}
	s.WriteToken("{{", "", start)
	s.writeExpr(e, 0, mode)
	s.WriteToken("}}", "", end)
}

func isSplitBoundary(e ast.Expression) bool {
	switch e.(type) {
	case *ast.LitStr, *ast.ToStringWithoutUndefined:
		return true
	}
	return false
}
