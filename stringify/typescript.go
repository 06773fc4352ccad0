package stringify

import (
	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/sourcemap"
)

// TS-flavored expression flattening: every interpolation becomes a JS-ish
// expression, text runs become string literals joined by `+`, and normal
// elements, `<block>` groups and each For body become braced blocks; an If
// writes each branch condition and then the branch body, with no braces of
// its own. Identifiers, literals, operators and object/array literal brackets
// map back to their expression positions; `.`, `,`, `:`, `?`, index brackets
// and parentheses carry no mapping.

// ConvertedExpr renders the template's expressions for downstream type
// analysis, minimized, with a source map.
func ConvertedExpr(tmpl *ast.Template, source string) (string, *sourcemap.Builder) {
	s := New(tmpl.Path, source, Options{SourceMap: true, Minimize: true})
	mode := exprMode{genQuotes: true}
	for _, st := range tmpl.Globals.SubTemplates {
		s.scopeSpace(func() {
			s.tsNodes(st.Children, mode)
		})
	}
	s.tsNodes(tmpl.Content, mode)
	return s.Finish()
}

func (s *Stringifier) tsNodes(nodes []ast.Node, mode exprMode) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ast.TextNode:
			if _, ok := n.Value.(*ast.DynamicValue); ok {
				s.writeLine(func() { s.tsValue(n.Value, mode) })
			}
		case *ast.Element:
			s.tsElement(n, mode)
		}
	}
}

func (s *Stringifier) tsElement(e *ast.Element, mode exprMode) {
	locs := elemTagLocs(e)
	openBrace := func(f func()) {
		s.writeLine(func() { s.WriteToken("{", "", locs.open) })
		s.subBlock(f)
		s.writeLine(func() { s.WriteToken("}", "", locs.endOpen) })
	}
	switch k := e.Kind.(type) {
	case *ast.Normal:
		openBrace(func() {
			s.tsAttrValues(k, mode)
			s.tsNodes(k.Children, mode)
		})
	case *ast.Pure:
		openBrace(func() {
			s.tsNodes(k.Children, mode)
		})
	case *ast.For:
		s.scopeSpace(func() {
			s.tsValueLine(k.List.Value, mode)
			s.AddScope(k.ItemName.Value.Name)
			s.AddScope(k.IndexName.Value.Name)
			openBrace(func() {
				s.tsNodes(k.Children, mode)
			})
		})
	case *ast.If:
		for _, br := range k.Branches {
			s.tsValueLine(br.Cond, mode)
			s.tsNodes(br.Children, mode)
		}
		if k.Else != nil {
			s.tsNodes(k.Else.Children, mode)
		}
	case *ast.TemplateRef:
		s.tsValueLine(k.Target.Value, mode)
		s.tsValueLine(k.Data.Value, mode)
	case *ast.SlotElem:
		s.tsValueLine(k.Name.Value, mode)
		for _, a := range k.Values {
			s.tsValueLine(a.Value, mode)
		}
	}
}

// tsAttrValues emits the dynamic attribute expressions of a normal element
// in the canonical attribute order.
func (s *Stringifier) tsAttrValues(k *ast.Normal, mode exprMode) {
	if k.Class.Kind == ast.ClassAttrString {
		s.tsValueLine(k.Class.Value, mode)
	}
	if k.Style.Kind == ast.StyleAttrString {
		s.tsValueLine(k.Style.Value, mode)
	}
	for _, a := range k.Attributes {
		s.tsValueLine(a.Value, mode)
	}
	for _, a := range k.ChangeAttributes {
		s.tsValueLine(a.Value, mode)
	}
	if k.Slot != nil {
		s.tsValueLine(k.Slot.Value, mode)
	}
	for _, a := range k.Marks {
		s.tsValueLine(a.Value, mode)
	}
	for _, ev := range k.EventBindings {
		s.tsValueLine(ev.Value, mode)
	}
	for _, a := range k.Data {
		s.tsValueLine(a.Value, mode)
	}
}

// tsValueLine writes one expression statement line for dynamic values and
// skips static ones.
func (s *Stringifier) tsValueLine(v ast.Value, mode exprMode) {
	if _, ok := v.(*ast.DynamicValue); !ok {
		return
	}
	s.writeLine(func() { s.tsValue(v, mode) })
}

// tsValue writes a value as a flattened expression. Literal segments
// become string literals; the coercion wrappers dissolve into their
// arguments, joined by `+`.
func (s *Stringifier) tsValue(v ast.Value, mode exprMode) {
	dv, ok := v.(*ast.DynamicValue)
	if !ok {
		return
	}
	s.writeExpr(dv.Expr, 0, mode)
}
