package wxc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wxtool/wxc/stringify"
)

func TestParseAndStringify(t *testing.T) {
	tmpl, warnings := ParseTmpl("page", `<view>{{ msg }}</view>`)
	assert.Empty(t, warnings)
	out, smb := StringifyTmpl(tmpl, `<view>{{ msg }}</view>`, stringify.Options{Minimize: true})
	assert.Equal(t, `<view>{{msg}}</view>`, out)
	assert.Nil(t, smb)
}

func TestStringifyWithSourceMap(t *testing.T) {
	src := `<view>{{ msg }}</view>`
	tmpl, _ := ParseTmpl("page", src)
	out, smb := StringifyTmpl(tmpl, src, stringify.Options{Minimize: true, SourceMap: true})
	assert.NotEmpty(t, out)
	assert.NotNil(t, smb)
	assert.NotEmpty(t, smb.Mappings())
}

func TestPreventSuccess(t *testing.T) {
	_, clean := ParseTmpl("p", `<view/>`)
	assert.False(t, PreventSuccess(clean))

	_, warned := ParseTmpl("p", `<view a a/>`)
	assert.False(t, PreventSuccess(warned), "a warn-level diagnostic compiles")

	_, errored := ParseTmpl("p", `&#xG;`)
	assert.True(t, PreventSuccess(errored))
}
