package stringify

import (
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	sourcemapv1 "gopkg.in/sourcemap.v1"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/parse"
)

func renderMin(t *testing.T, src string, mangling bool) string {
	t.Helper()
	tmpl, _ := parse.Tmpl("TEST", src)
	s := New("TEST", src, Options{Minimize: true, Mangling: mangling})
	s.Run(tmpl)
	out, _ := s.Finish()
	return out
}

func render(t *testing.T, src string, opts Options) string {
	t.Helper()
	tmpl, _ := parse.Tmpl("TEST", src)
	s := New("TEST", src, opts)
	s.Run(tmpl)
	out, _ := s.Finish()
	return out
}

func TestCanonicalValues(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"brace pair", "{ {", "{ {"},
		{"text then expr", " a\t{{ b }}", `{{"a\t"+b}}`},
		{"expr then text", "{{ b }} a ", "{{b+' a '}}"},
		{"two exprs", "{{ a }}{{ b }}", "{{a+b}}"},
		{"string escapes", `{{ 'a\n\u0041\x4f\x4E' }}`, `{{"a\nAON"}}`},
		{"entity decodes and re-escapes", "&lt;abc&gt;", "&lt;abc&gt;"},
		{"dangling lt", "<-", "&lt;-"},
		{"fatal drops text run", "{{ a } }", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderMin(t, tt.src, false)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"precedence kept", `<b a="{{ a - 2 * b + 3 }}"/>`, `<b a="{{a-2*b+3}}"/>`},
		{"parens preserved by precedence", `<b a="{{ a + (b + 2.1) }}"/>`, `<b a="{{a+(b+2.1)}}"/>`},
		{"mixed mul", `<b a="{{ a % '2' * (b / 4) }}"/>`, `<b a="{{a%'2'*(b/4)}}"/>`},
		{"unary chain", `<b a="{{ - a + - 2 + + 3 + !!b }}"/>`, `<b a="{{-a+-2++3+!!b}}"/>`},
		{"logic", `<b a="{{a || b && c || d}}"/>`, `<b a="{{a||b&&c||d}}"/>`},
		{"nested ternary", `<b a="{{a ? b : c ? d : e}}"/>`, `<b a="{{a?b:c?d:e}}"/>`},
		{"equality", `<b a="{{ a === b }}"/>`, `<b a="{{a===b}}"/>`},
		{"comparison", `<b a="{{ a <= b }}"/>`, `<b a="{{a<=b}}"/>`},
		{"split around literal", `<b a="x{{ y }}z"/>`, `<b a="x{{y}}z"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderMin(t, tt.src, false)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMangledExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"member access wraps in X",
			`<b a="{{ a.a2 + b[4 + 1 - 5] }}"/>`,
			`<b a="{{X(a).a2+X(b)[4+1-5]}}"/>`,
		},
		{
			"object and array bases",
			`<b a="{{ {c1: true}['c1'] + [null, '2'][1] }}"/>`,
			`<b a="{{X({c1:true})['c1']+X([null,'2'])[1]}}"/>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderMin(t, tt.src, true)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIfElifElseUnfolding(t *testing.T) {
	src := `<b wx:if="{{a}}">1</b><b wx:elif="{{a+1}}">2</b><b wx:else>3</b>`
	want := `<block wx:if="{{a}}"><b>1</b></block>` +
		`<block wx:elif="{{a+1}}"><b>2</b></block>` +
		`<block wx:else><b>3</b></block>`
	if got := renderMin(t, src, false); got != want {
		t.Errorf("output mismatch:\n%v", diff.LineDiff(want, got))
	}
}

func TestForMangling(t *testing.T) {
	src := `<b wx:for="{{list}}" wx:key="v" a="{{index}}">{{item.v}}</b>`
	want := `<block wx:for="{{list}}" wx:for-item="$0" wx:for-index="$1" wx:key="v">` +
		`<b a="{{$1}}">{{X($0).v}}</b></block>`
	if got := renderMin(t, src, true); got != want {
		t.Errorf("output mismatch:\n%v", diff.LineDiff(want, got))
	}
}

func TestForIfWrappingOutput(t *testing.T) {
	src := `<div wx:if="{{v}}" wx:for="{{list}}" wx:for-item="v" wx:for-index="i" wx:key="k">{{i}}</div>`
	want := `<block wx:for="{{list}}" wx:for-item="$0" wx:for-index="$1" wx:key="k">` +
		`<block wx:if="{{$0}}"><div>{{$1}}</div></block></block>`
	if got := renderMin(t, src, true); got != want {
		t.Errorf("output mismatch:\n%v", diff.LineDiff(want, got))
	}
}

func TestSubTemplateOrdering(t *testing.T) {
	src := `<div><template is="sub" /></div> <template name="sub"><view wx:for="{{a}}">{{item}}</view></template>`
	want := `<template name="sub">` +
		`<block wx:for="{{a}}" wx:for-item="$0" wx:for-index="$1"><view>{{$0}}</view></block>` +
		`</template>` +
		`<div><template is="sub"/></div>`
	if got := renderMin(t, src, true); got != want {
		t.Errorf("output mismatch:\n%v", diff.LineDiff(want, got))
	}
}

func TestInlineScriptEscape(t *testing.T) {
	src := `<wxs module="m">var a = 1;</wxs><b/>`
	want := `<wxs module="m">var a = 1;</wxs><b/>`
	if got := renderMin(t, src, false); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	tmpl, _ := parse.Tmpl("TEST", src)
	tmpl.Globals.Scripts[0].(*ast.InlineScript).Content = "a</wxs>b"
	s := New("TEST", src, Options{Minimize: true})
	s.Run(tmpl)
	got, _ := s.Finish()
	want = `<wxs module="m">a< /wxs>b</wxs><b/>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultFormatting(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts Options
		want string
	}{
		{
			"self close",
			`<div />`,
			Options{TabSize: 4, LineWidthLimit: 100},
			"<div />\n",
		},
		{
			"tab size",
			`<div><span><a/></span></div>`,
			Options{TabSize: 2, LineWidthLimit: 100},
			"<div>\n  <span>\n    <a />\n  </span>\n</div>\n",
		},
		{
			"tab character",
			`<div><span><a/></span></div>`,
			Options{TabSize: 4, UseTabCharacter: true, LineWidthLimit: 100},
			"<div>\n\t<span>\n\t\t<a />\n\t</span>\n</div>\n",
		},
		{
			"line width limit",
			`<div data:a="this is a long string"></div><div data:a="but short"></div>`,
			Options{TabSize: 4, LineWidthLimit: 30},
			"<div\n    data:a=\"this is a long string\"\n/>\n<div data:a=\"but short\" />\n",
		},
		{
			"meta tag and inline text",
			`<!META><div><span> Hello world! </span></div>`,
			Options{TabSize: 4, LineWidthLimit: 100},
			"<!META>\n<div>\n    <span> Hello world! </span>\n</div>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, tt.src, tt.opts)
			if got != tt.want {
				t.Errorf("output mismatch:\n%v", diff.LineDiff(tt.want, got))
			}
		})
	}
}

func TestGroupSeparationLine(t *testing.T) {
	src := "\n" +
		"            <template is=\"a\" />\n" +
		"            <template name=\"a\">\n" +
		"                <a href=\"/\"> A </a>\n" +
		"            </template>\n" +
		"        "
	want := "<template name=\"a\">\n" +
		"    <a href=\"/\"> A </a>\n" +
		"</template>\n" +
		"\n" +
		"<template is=\"a\" />\n"
	if got := render(t, src, DefaultOptions()); got != want {
		t.Errorf("output mismatch:\n%v", diff.LineDiff(want, got))
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	sources := []string{
		` a\t{{ b }}`,
		`<b wx:if="{{a}}">1</b><b wx:elif="{{a+1}}">2</b><b wx:else>3</b>`,
		`<div><template is="sub" /></div> <template name="sub"><view>{{x}}</view></template>`,
		`<slot name="s"/><include src="a/b"/><import src="c"/>`,
		`<b mark:m="{{x}}" bindtap="h" capture-catch:touch="f" data:d="1" generic:g="G2"/>`,
		`&lt;abc&gt; {{ a ? 'x' : y.z }}`,
	}
	for _, src := range sources {
		first := renderMin(t, src, false)
		second := renderMin(t, first, false)
		if first != second {
			t.Errorf("round trip not stable for %q:\nfirst:  %q\nsecond: %q", src, first, second)
		}
		third := renderMin(t, second, false)
		if second != third {
			t.Errorf("third pass differs for %q", src)
		}
	}
}

func TestSourceMapMappings(t *testing.T) {
	src := "\n" +
		"            <template is=\"a\" />\n" +
		"            <template name=\"a\">\n" +
		"                <a href=\"/\"> A </a>\n" +
		"            </template>\n" +
		"        "
	tmpl, _ := parse.Tmpl("TEST", src)
	s := New("TEST", src, Options{SourceMap: true, TabSize: 4, LineWidthLimit: 100})
	s.Run(tmpl)
	out, smb := s.Finish()
	if smb == nil {
		t.Fatal("no source map produced")
	}

	type probe struct{ genLine, genCol, srcLine, srcCol uint32 }
	probes := []probe{
		{0, 0, 2, 12},  // `<` of the sub-template definition
		{0, 16, 2, 28}, // the template name `a`
		{1, 4, 3, 16},  // `<` of the inner element
	}
	for _, p := range probes {
		found := false
		for _, m := range smb.Mappings() {
			if m.GenLine == p.genLine && m.GenCol == p.genCol {
				found = true
				if m.SrcLine != p.srcLine || m.SrcCol != p.srcCol {
					t.Errorf("mapping at gen %d:%d points to %d:%d, want %d:%d",
						p.genLine, p.genCol, m.SrcLine, m.SrcCol, p.srcLine, p.srcCol)
				}
			}
		}
		if !found {
			t.Errorf("no mapping at generated %d:%d", p.genLine, p.genCol)
		}
	}

	// generated columns must be UTF-16 counts since the last newline
	lines := strings.Split(out, "\n")
	for _, m := range smb.Mappings() {
		if int(m.GenLine) >= len(lines) {
			t.Fatalf("mapping beyond output: %+v", m)
		}
		line := lines[m.GenLine]
		if int(m.GenCol) > len(utf16Units(line)) {
			t.Errorf("mapping column %d exceeds line width %d", m.GenCol, len(utf16Units(line)))
		}
	}

	// the serialized map must be consumable by a standard v3 parser
	smap, err := sourcemapv1.Parse("out.map", []byte(smb.String()))
	if err != nil {
		t.Fatalf("sourcemap.v1 rejects the output: %v", err)
	}
	ok := false
	for col := 0; col < 40 && !ok; col++ {
		if source, _, _, _, found := smap.Source(1, col); found && source == "TEST" {
			ok = true
		}
	}
	if !ok {
		t.Error("no token of the first generated line resolves to the source")
	}
}

func utf16Units(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		if r > 0xFFFF {
			out = append(out, 0, 0)
		} else {
			out = append(out, uint16(r))
		}
	}
	return out
}

func TestUTF16Columns(t *testing.T) {
	// the emoji is two UTF-16 units; the mapping after it must account for
	// that
	src := "\U0001F600{{ a }}"
	tmpl, _ := parse.Tmpl("TEST", src)
	s := New("TEST", src, Options{SourceMap: true, Minimize: true})
	s.Run(tmpl)
	out, smb := s.Finish()
	if !strings.HasPrefix(out, "{{") {
		t.Fatalf("unexpected output %q", out)
	}
	// the interpolation source position starts after the emoji: col 2
	found := false
	for _, m := range smb.Mappings() {
		if m.SrcLine == 0 && m.SrcCol == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no mapping with UTF-16 source column 2; mappings: %+v", smb.Mappings())
	}
}
