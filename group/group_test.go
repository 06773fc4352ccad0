package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicInclude(t *testing.T) {
	g := New()
	g.AddTmpl("a", `<b a="{{a}}" /> <template name="a" />`)
	g.AddTmpl("b", `<c a="{{a}}"> <include src="b/.././a" /> </c>`)

	deps, err := g.DirectDependencies("a")
	require.NoError(t, err)
	assert.Empty(t, deps)

	deps, err = g.DirectDependencies("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deps)
}

func TestBasicImport(t *testing.T) {
	g := New()
	g.AddTmpl("a", `<b a="{{a}}" /> <template name="aa"><d a1="{{bb}}" a2="{{a}}" /></template>`)
	g.AddTmpl("b", `<c a="{{a}}"> <import src="/a" /> <template is="aa" data="{{ bb: a + 1 }}" /> </c>`)

	deps, err := g.DirectDependencies("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deps)
}

func TestIncludeInsideControlFlow(t *testing.T) {
	g := New()
	g.AddTmpl("x/tmpl", `<b wx:if="{{c}}"><include src="../y" /></b><b wx:else><include src="./z" /></b>`)
	deps, err := g.DirectDependencies("x/tmpl")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x/z"}, deps)
}

func TestDependencyDeterminism(t *testing.T) {
	g := New()
	g.AddTmpl("t", `<include src="a"/><include src="b"/><include src="a"/><import src="c"/>`)
	first, err := g.DirectDependencies("t")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, first)
	for i := 0; i < 5; i++ {
		again, err := g.DirectDependencies("t")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExternalScripts(t *testing.T) {
	g := New()
	g.AddTmpl("tmpl/a", `<wxs module="modA" src="/script/a" /> <wxs module="modB" src="../script/b" /> {{ modA.a + modB.b }}`)
	g.AddScript("script/a", `(function(){return 0})()`)
	g.AddScript("script/b", `(function(){return 0})()`)

	deps, err := g.ScriptDependencies("tmpl/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"script/a", "script/b"}, deps)

	src, err := g.Script("script/a")
	require.NoError(t, err)
	assert.Contains(t, src, "function")
}

func TestInlineScripts(t *testing.T) {
	g := New()
	g.AddTmpl("tmpl/a", `<div>{{ modA.hi }}</div> <wxs module="modA"> exports.hi = 1 < 2 </wxs> <wxs module="modB" />`)

	deps, err := g.ScriptDependencies("tmpl/a")
	require.NoError(t, err)
	assert.Empty(t, deps)

	names, err := g.InlineScriptModuleNames("tmpl/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"modA", "modB"}, names)

	content, err := g.InlineScriptContent("tmpl/a", "modA")
	require.NoError(t, err)
	assert.Equal(t, " exports.hi = 1 < 2 ", content)

	content, err = g.InlineScriptContent("tmpl/a", "modB")
	require.NoError(t, err)
	assert.Equal(t, "", content)

	_, err = g.InlineScriptContent("tmpl/a", "missing")
	assert.ErrorIs(t, err, ErrScriptModuleNotFound)
}

func TestSetInlineScriptContent(t *testing.T) {
	g := New()
	g.AddTmpl("a", `<wxs module="m">old</wxs>`)

	tmplBefore, err := g.Tree("a")
	require.NoError(t, err)
	require.NotEmpty(t, tmplBefore.Globals.Scripts)

	require.NoError(t, g.SetInlineScriptContent("a", "m", "new content"))
	content, err := g.InlineScriptContent("a", "m")
	require.NoError(t, err)
	assert.Equal(t, "new content", content)

	assert.ErrorIs(t, g.SetInlineScriptContent("a", "nope", "x"), ErrScriptModuleNotFound)
	assert.ErrorIs(t, g.SetInlineScriptContent("nope", "m", "x"), ErrTemplateNotFound)
}

func TestPathNormalizationOnAdd(t *testing.T) {
	g := New()
	g.AddTmpl("x/./y/../a", `<b/>`)
	assert.True(t, g.Contains("x/a"))
	assert.True(t, g.Contains("q/../x/a"))
	assert.Equal(t, 1, g.Len())
}

func TestReAddReplaces(t *testing.T) {
	g := New()
	g.AddTmpl("a", `<include src="one"/>`)
	g.AddTmpl("a", `<include src="two"/>`)
	deps, err := g.DirectDependencies("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, deps)
	assert.Equal(t, 1, g.Len())
}

func TestNotFound(t *testing.T) {
	g := New()
	_, err := g.DirectDependencies("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	_, err = g.ScriptDependencies("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	_, err = g.InlineScriptModuleNames("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestGenObjectDeterminism(t *testing.T) {
	build := func() *TmplGroup {
		g := New()
		g.AddTmpl("p/a", `<b a="{{x}}">{{y}}</b><template name="s"><c/></template>`)
		g.AddTmpl("p/b", `<include src="a"/>`)
		g.AddScript("s/x", "exports.v = 1")
		return g
	}
	g1, g2 := build(), build()
	for _, fn := range []func(*TmplGroup) (string, error){
		(*TmplGroup).TmplGenObjectGroups,
		(*TmplGroup).WxGenObjectGroups,
		(*TmplGroup).ExportGlobals,
		(*TmplGroup).ExportAllScripts,
	} {
		out1, err := fn(g1)
		require.NoError(t, err)
		out2, err := fn(g2)
		require.NoError(t, err)
		assert.Equal(t, out1, out2)
		assert.NotEmpty(t, out1)
	}
}

func TestGenObjectCacheInvalidation(t *testing.T) {
	g := New()
	g.AddTmpl("a", `<wxs module="m">old</wxs><b>{{x}}</b>`)
	before, err := g.TmplGenObject("a")
	require.NoError(t, err)
	require.Contains(t, before, "old")

	require.NoError(t, g.SetInlineScriptContent("a", "m", "fresh"))
	after, err := g.TmplGenObject("a")
	require.NoError(t, err)
	assert.Contains(t, after, "fresh")
	assert.NotContains(t, after, "old")
}
