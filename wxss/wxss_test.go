package wxss

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sourcemapv1 "gopkg.in/sourcemap.v1"

	"github.com/wxtool/wxc/parse"
)

func TestClassPrefixAndRpx(t *testing.T) {
	tr := FromCSS("a.wxss", ".cls{width:375rpx}", Options{ClassPrefix: "p", RpxRatio: 750})
	assert.Empty(t, tr.Warnings())
	assert.Equal(t, ".p--cls{width:0.5px}", tr.Content())

	// the class-name token must map back to the input `.cls`
	var dotMapping bool
	for _, m := range tr.SourceMap().Mappings() {
		if m.SrcLine == 0 && m.SrcCol == 0 {
			dotMapping = true
			assert.Equal(t, uint32(0), m.GenCol)
		}
	}
	assert.True(t, dotMapping, "no mapping for the class selector")

	// the rewritten dimension records its original serialization as name
	assert.Contains(t, tr.SourceMap().String(), "375rpx")
}

func TestRpxValues(t *testing.T) {
	tests := []struct {
		src   string
		ratio float64
		want  string
	}{
		{".a{w:750rpx}", 750, ".a{w:1px}"},
		{".a{w:375rpx}", 750, ".a{w:0.5px}"},
		{".a{w:1500rpx}", 750, ".a{w:2px}"},
		{".a{w:375rpx}", 375, ".a{w:1px}"},
		{".a{w:10px}", 750, ".a{w:10px}"},
		{".a{w:50%}", 750, ".a{w:50%}"},
	}
	for _, tt := range tests {
		tr := FromCSS("t.wxss", tt.src, Options{RpxRatio: tt.ratio})
		assert.Equal(t, tt.want, tr.Content(), "src %q", tt.src)
	}
}

func TestDefaultRatio(t *testing.T) {
	tr := FromCSS("t.wxss", ".a{w:375rpx}", Options{})
	assert.Equal(t, ".a{w:0.5px}", tr.Content())
}

func TestImportPosition(t *testing.T) {
	tr := FromCSS("t.wxss", `@import "a.css"; .b{color:red}`, Options{})
	assert.Empty(t, tr.Warnings())

	tr = FromCSS("t.wxss", `.b{color:red} @import "a.css";`, Options{})
	require.Len(t, tr.Warnings(), 1)
	w := tr.Warnings()[0]
	assert.Equal(t, ErrIllegalImportPosition, w.Kind)
	assert.Equal(t, parse.LevelNote, w.Level())
	assert.False(t, w.PreventSuccess())
	// the violating rule still passes through
	assert.Contains(t, tr.Content(), "@import")
}

func TestTwoImportsUpFront(t *testing.T) {
	tr := FromCSS("t.wxss", `@import "a.css"; @import "b.css"; .c{}`, Options{})
	assert.Empty(t, tr.Warnings())
}

func TestWhitespaceCollapses(t *testing.T) {
	tr := FromCSS("t.wxss", ".a {\n  color : red ;\n}", Options{})
	assert.Equal(t, ".a { color : red ; }", tr.Content())
}

func TestClassPrefixSkipsNonClassDots(t *testing.T) {
	tr := FromCSS("t.wxss", ".a{w:1px}", Options{ClassPrefix: "pre"})
	assert.Equal(t, ".pre--a{w:1px}", tr.Content())

	// a dot not followed by an identifier is not a class selector
	tr = FromCSS("t.wxss", `.a{c:url(x);w:.5px}`, Options{ClassPrefix: "pre"})
	assert.Equal(t, ".pre--a{c:url(x);w:.5px}", tr.Content())
}

func TestMultipleClassSelectors(t *testing.T) {
	tr := FromCSS("t.wxss", ".a,.b{c:d}", Options{ClassPrefix: "x"})
	assert.Equal(t, ".x--a,.x--b{c:d}", tr.Content())
}

func TestSourceMapConsumable(t *testing.T) {
	tr := FromCSS("in.wxss", ".cls{width:375rpx;height:20px}", Options{ClassPrefix: "p"})
	var buf strings.Builder
	require.NoError(t, tr.WriteSourceMap(&buf))
	smap, err := sourcemapv1.Parse("out.map", []byte(buf.String()))
	require.NoError(t, err)
	found := false
	for col := 0; col < 40 && !found; col++ {
		if source, _, _, _, ok := smap.Source(1, col); ok && source == "in.wxss" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUTF16ColumnTracking(t *testing.T) {
	// the emoji in the comment occupies two UTF-16 units
	tr := FromCSS("t.wxss", "/*\U0001F600*/.cls{w:1px}", Options{})
	var clsMapping bool
	for _, m := range tr.SourceMap().Mappings() {
		// `.` sits after the comment: 2 (comment open) + 2 (emoji) + 2 = 6
		if m.SrcCol == 6 {
			clsMapping = true
		}
	}
	assert.True(t, clsMapping, "mappings: %+v", tr.SourceMap().Mappings())
}
