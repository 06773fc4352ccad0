package group

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/stringify"
)

// Generator-object serialization: the deterministic form of a compiled
// template consumed by the companion runtime. The shape is owned by the
// runtime loader; the guarantees here are determinism for identical input
// and re-parseability.

// TmplGenObject returns the generator object for one template.
func (g *TmplGroup) TmplGenObject(path string) (string, error) {
	path = Normalize(path)
	if cached, ok := g.genCache[path]; ok {
		return cached, nil
	}
	tmpl, ok := g.tmpls[path]
	if !ok {
		return "", ErrTemplateNotFound
	}
	obj := genTemplate(tmpl, path)
	out, err := marshalDeterministic(obj)
	if err != nil {
		return "", err
	}
	g.genCache[path] = out
	return out, nil
}

// TmplGenObjectGroups returns the generator objects of every template in
// the group, keyed by path.
func (g *TmplGroup) TmplGenObjectGroups() (string, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, path := range g.TmplPaths() {
		if i > 0 {
			sb.WriteByte(',')
		}
		obj, err := g.TmplGenObject(path)
		if err != nil {
			return "", err
		}
		key, _ := json.Marshal(path)
		sb.Write(key)
		sb.WriteByte(':')
		sb.WriteString(obj)
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

// WxGenObjectGroups is the group serialization the template CLI emits by
// default.
func (g *TmplGroup) WxGenObjectGroups() (string, error) {
	return g.TmplGenObjectGroups()
}

// ExportGlobals serializes the per-template globals (imports and
// sub-template names) for the host runtime.
func (g *TmplGroup) ExportGlobals() (string, error) {
	type globals struct {
		Imports      []string `json:"imports"`
		SubTemplates []string `json:"subTemplates"`
	}
	out := make(map[string]globals, len(g.tmpls))
	for path, tmpl := range g.tmpls {
		gl := globals{Imports: []string{}, SubTemplates: []string{}}
		for _, imp := range tmpl.Globals.Imports {
			gl.Imports = append(gl.Imports, Resolve(path, imp.Name))
		}
		for _, st := range tmpl.Globals.SubTemplates {
			gl.SubTemplates = append(gl.SubTemplates, st.Name.Name)
		}
		out[path] = gl
	}
	return marshalSortedMap(out)
}

// ExportAllScripts serializes every script of the group: external bodies
// by path plus the inline modules of each template.
func (g *TmplGroup) ExportAllScripts() (string, error) {
	type inlineModule struct {
		Module  string `json:"module"`
		Content string `json:"content"`
	}
	external := make(map[string]string, len(g.scripts))
	for path, src := range g.scripts {
		external[path] = src
	}
	inline := make(map[string][]inlineModule)
	for path, tmpl := range g.tmpls {
		var mods []inlineModule
		for _, script := range tmpl.Globals.Scripts {
			if is, ok := script.(*ast.InlineScript); ok {
				mods = append(mods, inlineModule{Module: is.Module.Name, Content: is.Content})
			}
		}
		if mods != nil {
			inline[path] = mods
		}
	}
	ext, err := marshalSortedMap(external)
	if err != nil {
		return "", err
	}
	inl, err := marshalSortedMap(inline)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"external":%s,"inline":%s}`, ext, inl), nil
}

// --- gen-object tree building ---

type genValue struct {
	Static  *string         `json:"s,omitempty"`
	Expr    string          `json:"e,omitempty"`
	Keys    [][2]interface{} `json:"k,omitempty"`
	dynamic bool
}

func (v genValue) MarshalJSON() ([]byte, error) {
	if !v.dynamic {
		return json.Marshal(map[string]*string{"s": v.Static})
	}
	m := map[string]interface{}{"e": v.Expr}
	if len(v.Keys) > 0 {
		m["k"] = v.Keys
	}
	return marshalSortedAny(m)
}

type genWalker struct {
	collector *ast.BindingMapCollector
	scopes    int
}

func genTemplate(tmpl *ast.Template, path string) map[string]interface{} {
	w := &genWalker{collector: collectorFor(tmpl)}
	scripts := make([]interface{}, 0, len(tmpl.Globals.Scripts))
	for _, script := range tmpl.Globals.Scripts {
		switch script := script.(type) {
		case *ast.InlineScript:
			scripts = append(scripts, map[string]string{"module": script.Module.Name, "content": script.Content})
		case *ast.ScriptRef:
			scripts = append(scripts, map[string]string{"module": script.Module.Name, "src": Resolve(path, script.Path.Name)})
		}
	}
	subTemplates := make([]interface{}, 0, len(tmpl.Globals.SubTemplates))
	for _, st := range tmpl.Globals.SubTemplates {
		subTemplates = append(subTemplates, map[string]interface{}{
			"name":    st.Name.Name,
			"content": w.nodes(st.Children),
		})
	}
	imports := make([]string, 0, len(tmpl.Globals.Imports))
	for _, imp := range tmpl.Globals.Imports {
		imports = append(imports, Resolve(path, imp.Name))
	}
	bindingMap := map[string]int{}
	for _, f := range w.collector.ListFields() {
		bindingMap[f.Name] = f.Count
	}
	return map[string]interface{}{
		"path":         path,
		"imports":      imports,
		"scripts":      scripts,
		"subTemplates": subTemplates,
		"content":      w.nodes(tmpl.Content),
		"bindingMap":   bindingMap,
	}
}

func collectorFor(tmpl *ast.Template) *ast.BindingMapCollector {
	// the collector was populated at parse time; rebuilding keeps the gen
	// object correct after in-place script mutation
	c := ast.NewBindingMapCollector()
	var walkNodes func(nodes []ast.Node)
	walkValue := func(v ast.Value) {
		dv, ok := v.(*ast.DynamicValue)
		if !ok {
			return
		}
		for _, k := range dv.BindingMapKeys.Keys() {
			c.AddField(k.Name)
		}
	}
	walkNodes = func(nodes []ast.Node) {
		for _, n := range nodes {
			switch n := n.(type) {
			case *ast.TextNode:
				walkValue(n.Value)
			case *ast.Element:
				switch n.Kind.(type) {
				case *ast.TemplateRef, *ast.Include:
					c.DisableAll()
				}
				it := ast.NewChildrenIter(n)
				var children []ast.Node
				for cn := it.Next(); cn != nil; cn = it.Next() {
					children = append(children, cn)
				}
				walkNodes(children)
			}
		}
	}
	for _, st := range tmpl.Globals.SubTemplates {
		walkNodes(st.Children)
	}
	walkNodes(tmpl.Content)
	return c
}

func (w *genWalker) value(v ast.Value) genValue {
	switch v := v.(type) {
	case *ast.StaticValue:
		val := v.Value
		return genValue{Static: &val}
	case *ast.DynamicValue:
		scopeNames := make([]string, w.scopes)
		for i := range scopeNames {
			scopeNames[i] = fmt.Sprintf("$%d", i)
		}
		gv := genValue{
			Expr:    stringify.ExprStringWithScopes(v.Expr, true, scopeNames),
			dynamic: true,
		}
		for _, k := range v.BindingMapKeys.Keys() {
			if w.collector.FieldEnabled(k.Name) {
				gv.Keys = append(gv.Keys, [2]interface{}{k.Name, k.Index})
			}
		}
		return gv
	}
	empty := ""
	return genValue{Static: &empty}
}

func (w *genWalker) nodes(nodes []ast.Node) []interface{} {
	out := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *ast.TextNode:
			out = append(out, map[string]interface{}{"t": "text", "v": w.value(n.Value)})
		case *ast.Element:
			out = append(out, w.element(n))
		}
	}
	return out
}

func (w *genWalker) attrs(attrs []ast.Attribute, prefix string) []interface{} {
	out := make([]interface{}, 0, len(attrs))
	for _, a := range attrs {
		m := map[string]interface{}{"name": a.Name.Name, "value": w.value(a.Value)}
		if prefix != "" {
			m["prefix"] = prefix
		}
		if a.IsModel {
			m["model"] = true
		}
		out = append(out, m)
	}
	return out
}

func staticAttrMap(attrs []ast.StaticAttribute) map[string]interface{} {
	m := make(map[string]interface{}, len(attrs))
	for _, a := range attrs {
		m[a.Name.Name] = a.Value.Name
	}
	return m
}

func (w *genWalker) element(e *ast.Element) interface{} {
	switch k := e.Kind.(type) {
	case *ast.Normal:
		m := map[string]interface{}{
			"t":        "element",
			"tag":      k.TagName.Name,
			"children": w.nodes(k.Children),
		}
		if len(k.Attributes) > 0 {
			m["attrs"] = w.attrs(k.Attributes, "")
		}
		if k.Class.Kind == ast.ClassAttrString {
			m["class"] = w.value(k.Class.Value)
		}
		if k.Style.Kind == ast.StyleAttrString {
			m["style"] = w.value(k.Style.Value)
		}
		if len(k.ChangeAttributes) > 0 {
			m["change"] = w.attrs(k.ChangeAttributes, "")
		}
		if len(k.Data) > 0 {
			m["data"] = w.attrs(k.Data, "")
		}
		if len(k.Marks) > 0 {
			m["marks"] = w.attrs(k.Marks, "")
		}
		if len(k.EventBindings) > 0 {
			evs := make([]interface{}, 0, len(k.EventBindings))
			for _, ev := range k.EventBindings {
				evs = append(evs, map[string]interface{}{
					"name":    ev.Name.Name,
					"value":   w.value(ev.Value),
					"catch":   ev.IsCatch,
					"mut":     ev.IsMut,
					"capture": ev.IsCapture,
				})
			}
			m["events"] = evs
		}
		if len(k.Generics) > 0 {
			m["generics"] = staticAttrMap(k.Generics)
		}
		if len(k.ExtraAttr) > 0 {
			m["extraAttr"] = staticAttrMap(k.ExtraAttr)
		}
		if len(k.WorkletAttributes) > 0 {
			m["worklet"] = staticAttrMap(k.WorkletAttributes)
		}
		if len(k.SlotValueRefs) > 0 {
			m["slotValueRefs"] = staticAttrMap(k.SlotValueRefs)
		}
		if k.Slot != nil {
			m["slot"] = w.value(k.Slot.Value)
		}
		return m
	case *ast.Pure:
		return map[string]interface{}{"t": "block", "children": w.nodes(k.Children)}
	case *ast.For:
		w.scopes += 2
		children := w.nodes(k.Children)
		w.scopes -= 2
		return map[string]interface{}{
			"t":     "for",
			"list":  w.value(k.List.Value),
			"item":  fmt.Sprintf("$%d", w.scopes),
			"index": fmt.Sprintf("$%d", w.scopes+1),
			"key":   k.Key.Value.Name,
			"children": children,
		}
	case *ast.If:
		branches := make([]interface{}, 0, len(k.Branches))
		for _, br := range k.Branches {
			branches = append(branches, map[string]interface{}{
				"cond":     w.value(br.Cond),
				"children": w.nodes(br.Children),
			})
		}
		m := map[string]interface{}{"t": "if", "branches": branches}
		if k.Else != nil {
			m["else"] = w.nodes(k.Else.Children)
		}
		return m
	case *ast.TemplateRef:
		return map[string]interface{}{
			"t":    "templateRef",
			"is":   w.value(k.Target.Value),
			"data": w.value(k.Data.Value),
		}
	case *ast.Include:
		return map[string]interface{}{"t": "include", "path": k.Path.Value.Name}
	case *ast.SlotElem:
		return map[string]interface{}{
			"t":      "slot",
			"name":   w.value(k.Name.Value),
			"values": w.attrs(k.Values, ""),
		}
	}
	return nil
}

// --- deterministic JSON helpers ---

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// marshalDeterministic marshals with map keys sorted at every level
// (encoding/json sorts map keys already; structs keep field order).
func marshalDeterministic(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func marshalSortedMap[V any](m map[string]V) (string, error) {
	b, err := json.Marshal(m)
	return string(b), err
}

func marshalSortedAny(m map[string]interface{}) ([]byte, error) {
	return json.Marshal(m)
}
