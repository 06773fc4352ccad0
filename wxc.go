// Package wxc compiles WXML component templates and WXSS stylesheets.
//
// The template pipeline parses source text into an AST plus a diagnostic
// list, collects templates in a group for cross-template queries, and
// re-serializes them: canonical markup, a TS-flavored expression form for
// type analysis, or a generator object for the companion runtime. The
// stylesheet pipeline rewrites CSS token-by-token. Both emit standard
// source maps with UTF-16 columns.
//
// Typical use:
//
//	g := group.New()
//	warnings := g.AddTmpl("pages/index", src)
//	deps, _ := g.DirectDependencies("pages/index")
//	out, _ := g.WxGenObjectGroups()
package wxc

import (
	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/parse"
	"github.com/wxtool/wxc/sourcemap"
	"github.com/wxtool/wxc/stringify"
)

// ParseTmpl parses one template source file. Any input yields a template;
// the diagnostics report what was wrong with it.
func ParseTmpl(path, src string) (*ast.Template, []parse.Error) {
	return parse.Tmpl(path, src)
}

// StringifyTmpl renders a template as canonical, re-parseable markup.
// source is the original input, embedded in the source map when enabled.
func StringifyTmpl(tmpl *ast.Template, source string, opts stringify.Options) (string, *sourcemap.Builder) {
	s := stringify.New(tmpl.Path, source, opts)
	s.Run(tmpl)
	return s.Finish()
}

// PreventSuccess reports whether any diagnostic in the list prevents a
// successful compilation.
func PreventSuccess(warnings []parse.Error) bool {
	for _, w := range warnings {
		if w.PreventSuccess() {
			return true
		}
	}
	return false
}
