package parse

import "github.com/wxtool/wxc/ast"

// CollectBindingMaps walks the template, assigns binding-map slots for the
// top-level data fields each dynamic value reads, and attaches the keys to
// the values. Includes and template references make the whole tree
// non-patchable, since their content is resolved at run time.
func CollectBindingMaps(tmpl *ast.Template) *ast.BindingMapCollector {
	c := ast.NewBindingMapCollector()
	w := &bindingMapWalker{c: c}
	for _, st := range tmpl.Globals.SubTemplates {
		w.walkNodes(st.Children)
	}
	w.walkNodes(tmpl.Content)
	return c
}

type bindingMapWalker struct {
	c *ast.BindingMapCollector
}

func (w *bindingMapWalker) walkNodes(nodes []ast.Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ast.TextNode:
			w.walkValue(n.Value)
		case *ast.Element:
			w.walkElement(n)
		}
	}
}

func (w *bindingMapWalker) walkElement(e *ast.Element) {
	switch k := e.Kind.(type) {
	case *ast.Normal:
		for _, a := range k.Attributes {
			w.walkValue(a.Value)
		}
		if k.Class.Kind == ast.ClassAttrString {
			w.walkValue(k.Class.Value)
		}
		if k.Style.Kind == ast.StyleAttrString {
			w.walkValue(k.Style.Value)
		}
		for _, a := range k.ChangeAttributes {
			w.walkValue(a.Value)
		}
		for _, ev := range k.EventBindings {
			w.walkValue(ev.Value)
		}
		for _, a := range k.Marks {
			w.walkValue(a.Value)
		}
		for _, a := range k.Data {
			w.walkValue(a.Value)
		}
		if k.Slot != nil {
			w.walkValue(k.Slot.Value)
		}
		w.walkNodes(k.Children)
	case *ast.Pure:
		for _, ev := range k.EventBindings {
			w.walkValue(ev.Value)
		}
		for _, a := range k.Marks {
			w.walkValue(a.Value)
		}
		if k.Slot != nil {
			w.walkValue(k.Slot.Value)
		}
		w.walkNodes(k.Children)
	case *ast.For:
		// items update wholesale: individual field patches of the list
		// would skew the iteration, so its field is disabled
		for _, field := range topLevelFields(k.List) {
			w.c.DisableField(field)
		}
		w.walkValue(k.List.Value)
		w.walkNodes(k.Children)
	case *ast.If:
		for _, br := range k.Branches {
			w.walkValue(br.Cond)
			w.walkNodes(br.Children)
		}
		if k.Else != nil {
			w.walkNodes(k.Else.Children)
		}
	case *ast.TemplateRef:
		w.c.DisableAll()
		w.walkValue(k.Target.Value)
		w.walkValue(k.Data.Value)
	case *ast.Include:
		w.c.DisableAll()
	case *ast.SlotElem:
		w.walkValue(k.Name.Value)
		for _, a := range k.Values {
			w.walkValue(a.Value)
		}
	}
}

func (w *bindingMapWalker) walkValue(v ast.Value) {
	dv, ok := v.(*ast.DynamicValue)
	if !ok || dv == nil {
		return
	}
	keys := &ast.BindingMapKeys{}
	for _, field := range exprTopLevelFields(dv.Expr, nil) {
		if idx, ok := w.c.AddField(field); ok {
			keys.Add(field, idx)
		}
	}
	dv.BindingMapKeys = keys
}

func topLevelFields(nv ast.NamedValue) []string {
	dv, ok := nv.Value.(*ast.DynamicValue)
	if !ok {
		return nil
	}
	return exprTopLevelFields(dv.Expr, nil)
}

// exprTopLevelFields collects the data fields an expression reads.
func exprTopLevelFields(e ast.Expression, acc []string) []string {
	switch e := e.(type) {
	case *ast.IdentRef:
		acc = append(acc, e.Name)
	case *ast.Member:
		acc = exprTopLevelFields(e.Obj, acc)
	case *ast.Index:
		acc = exprTopLevelFields(e.Obj, acc)
		acc = exprTopLevelFields(e.Arg, acc)
	case *ast.ObjectLit:
		for _, f := range e.Fields {
			acc = exprTopLevelFields(f.Value, acc)
		}
	case *ast.ArrayLit:
		for _, it := range e.Items {
			acc = exprTopLevelFields(it, acc)
		}
	case *ast.Unary:
		acc = exprTopLevelFields(e.Arg, acc)
	case *ast.Binary:
		acc = exprTopLevelFields(e.Left, acc)
		acc = exprTopLevelFields(e.Right, acc)
	case *ast.Cond:
		acc = exprTopLevelFields(e.CondExpr, acc)
		acc = exprTopLevelFields(e.Then, acc)
		acc = exprTopLevelFields(e.Else, acc)
	case *ast.ToStringWithoutUndefined:
		acc = exprTopLevelFields(e.Arg, acc)
	}
	return acc
}
