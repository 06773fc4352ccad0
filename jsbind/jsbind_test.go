package jsbind

import (
	"testing"

	"github.com/robertkrimen/otto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVM(t *testing.T) *otto.Otto {
	t.Helper()
	vm := otto.New()
	require.NoError(t, Install(vm))
	return vm
}

func TestGroupFromScript(t *testing.T) {
	vm := newVM(t)
	v, err := vm.Run(`
var g = TmplGroup();
g.addTmpl("a", '<b x="{{v}}"/> <template name="a"/>');
g.addTmpl("b", '<c><include src="b/.././a"/></c>');
g.getDirectDependencies("b")[0];
`)
	require.NoError(t, err)
	assert.Equal(t, "a", v.String())
}

func TestInlineScriptsFromScript(t *testing.T) {
	vm := newVM(t)
	v, err := vm.Run(`
var g = TmplGroup();
g.addTmpl("t", '<wxs module="m">exports.x = 1</wxs><b/>');
g.setInlineScript("t", "m", "exports.x = 2");
g.getInlineScript("t", "m");
`)
	require.NoError(t, err)
	assert.Equal(t, "exports.x = 2", v.String())
}

func TestWarningsSurface(t *testing.T) {
	vm := newVM(t)
	v, err := vm.Run(`
var g = TmplGroup();
var warnings = g.addTmpl("t", "<div a a></div>");
warnings.length;
`)
	require.NoError(t, err)
	n, err := v.ToInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMissingTemplateThrows(t *testing.T) {
	vm := newVM(t)
	_, err := vm.Run(`
var g = TmplGroup();
g.getTmplGenObject("missing");
`)
	assert.Error(t, err)
}

func TestGenObjectFromScript(t *testing.T) {
	vm := newVM(t)
	v, err := vm.Run(`
var g = TmplGroup();
g.addTmpl("p", '<b>{{x}}</b>');
g.getTmplGenObject("p");
`)
	require.NoError(t, err)
	assert.Contains(t, v.String(), `"path":"p"`)
}
