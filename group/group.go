// Package group provides content-addressed access to a collection of
// parsed templates and their scripts, with dependency and inline-script
// queries that survive path normalization and re-adding.
package group

import (
	"errors"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/parse"
)

var (
	// ErrTemplateNotFound is returned for queries against a path that was
	// never added.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrScriptModuleNotFound is returned when a template has no inline
	// script with the requested module name.
	ErrScriptModuleNotFound = errors.New("script module not found")
)

// TmplGroup owns parsed templates and external script sources, keyed by
// normalized path. Adding to an existing key replaces the entry and
// invalidates any cached derivation.
type TmplGroup struct {
	tmpls    map[string]*ast.Template
	scripts  map[string]string
	genCache map[string]string
}

// New returns an empty group.
func New() *TmplGroup {
	return &TmplGroup{
		tmpls:    make(map[string]*ast.Template),
		scripts:  make(map[string]string),
		genCache: make(map[string]string),
	}
}

// AddTmpl parses the source and stores the template under the normalized
// path, replacing any previous entry. The returned diagnostics are the
// parse warnings; the template is stored even when they contain errors.
func (g *TmplGroup) AddTmpl(path, src string) []parse.Error {
	path = Normalize(path)
	tmpl, warnings := parse.Tmpl(path, src)
	g.tmpls[path] = tmpl
	g.invalidate()
	return warnings
}

// AddScript stores a raw external script body under the normalized path.
func (g *TmplGroup) AddScript(path, src string) {
	g.scripts[Normalize(path)] = src
	g.invalidate()
}

// Len returns the number of templates in the group.
func (g *TmplGroup) Len() int { return len(g.tmpls) }

// Contains reports whether a template exists at the path.
func (g *TmplGroup) Contains(path string) bool {
	_, ok := g.tmpls[Normalize(path)]
	return ok
}

// TmplPaths returns the template paths in sorted order.
func (g *TmplGroup) TmplPaths() []string {
	return sortedKeys(g.tmpls)
}

// ScriptPaths returns the external script paths in sorted order.
func (g *TmplGroup) ScriptPaths() []string {
	return sortedKeys(g.scripts)
}

// Tree returns the stored template for the path.
func (g *TmplGroup) Tree(path string) (*ast.Template, error) {
	tmpl, ok := g.tmpls[Normalize(path)]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

// Script returns the stored external script body for the path.
func (g *TmplGroup) Script(path string) (string, error) {
	src, ok := g.scripts[Normalize(path)]
	if !ok {
		return "", ErrTemplateNotFound
	}
	return src, nil
}

// DirectDependencies resolves each import and include of the template
// against its own path and yields the de-duplicated set in insertion
// order.
func (g *TmplGroup) DirectDependencies(path string) ([]string, error) {
	path = Normalize(path)
	tmpl, ok := g.tmpls[path]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	var deps []string
	seen := make(map[string]bool)
	add := func(rel string) {
		abs := Resolve(path, rel)
		if !seen[abs] {
			seen[abs] = true
			deps = append(deps, abs)
		}
	}
	for _, imp := range tmpl.Globals.Imports {
		add(imp.Name)
	}
	walkIncludes(tmpl.Content, add)
	for _, st := range tmpl.Globals.SubTemplates {
		walkIncludes(st.Children, add)
	}
	return deps, nil
}

func walkIncludes(nodes []ast.Node, add func(string)) {
	for _, n := range nodes {
		e, ok := n.(*ast.Element)
		if !ok {
			continue
		}
		if inc, ok := e.Kind.(*ast.Include); ok {
			add(inc.Path.Value.Name)
			continue
		}
		it := ast.NewChildrenIter(e)
		var children []ast.Node
		for c := it.Next(); c != nil; c = it.Next() {
			children = append(children, c)
		}
		walkIncludes(children, add)
	}
}

// ScriptDependencies resolves each external `<wxs src>` reference of the
// template, de-duplicated in insertion order.
func (g *TmplGroup) ScriptDependencies(path string) ([]string, error) {
	path = Normalize(path)
	tmpl, ok := g.tmpls[path]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	var deps []string
	seen := make(map[string]bool)
	for _, script := range tmpl.Globals.Scripts {
		ref, ok := script.(*ast.ScriptRef)
		if !ok {
			continue
		}
		abs := Resolve(path, ref.Path.Name)
		if !seen[abs] {
			seen[abs] = true
			deps = append(deps, abs)
		}
	}
	return deps, nil
}

// InlineScriptModuleNames lists the inline script modules of the template
// in declaration order.
func (g *TmplGroup) InlineScriptModuleNames(path string) ([]string, error) {
	tmpl, ok := g.tmpls[Normalize(path)]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	var names []string
	for _, script := range tmpl.Globals.Scripts {
		if inline, ok := script.(*ast.InlineScript); ok {
			names = append(names, inline.Module.Name)
		}
	}
	return names, nil
}

// InlineScriptContent returns the body of an inline script module.
func (g *TmplGroup) InlineScriptContent(path, module string) (string, error) {
	tmpl, ok := g.tmpls[Normalize(path)]
	if !ok {
		return "", ErrTemplateNotFound
	}
	for _, script := range tmpl.Globals.Scripts {
		if inline, ok := script.(*ast.InlineScript); ok && inline.Module.Name == module {
			return inline.Content, nil
		}
	}
	return "", ErrScriptModuleNotFound
}

// SetInlineScriptContent replaces the body of an inline script module in
// place, preserving its recorded content range. The template is not
// re-parsed.
func (g *TmplGroup) SetInlineScriptContent(path, module, content string) error {
	tmpl, ok := g.tmpls[Normalize(path)]
	if !ok {
		return ErrTemplateNotFound
	}
	for _, script := range tmpl.Globals.Scripts {
		if inline, ok := script.(*ast.InlineScript); ok && inline.Module.Name == module {
			inline.Content = content
			g.invalidate()
			return nil
		}
	}
	return ErrScriptModuleNotFound
}

func (g *TmplGroup) invalidate() {
	for k := range g.genCache {
		delete(g.genCache, k)
	}
}
