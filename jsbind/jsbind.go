// Package jsbind exposes a template group to an embedded JavaScript
// runtime through string-typed wrappers, so host tooling scripted in JS
// can drive compilation without a native binding layer.
package jsbind

import (
	"fmt"

	"github.com/robertkrimen/otto"

	"github.com/wxtool/wxc/group"
	"github.com/wxtool/wxc/parse"
)

// Install registers a `TmplGroup` constructor in the VM. Each constructed
// object wraps a fresh group and exposes the group operations as methods:
//
//	var g = TmplGroup();
//	g.addTmpl("index", src);     // returns an array of warning strings
//	g.getDirectDependencies("index");
//	g.getTmplGenObject("index");
func Install(vm *otto.Otto) error {
	return vm.Set("TmplGroup", func(call otto.FunctionCall) otto.Value {
		obj, err := newGroupObject(vm)
		if err != nil {
			panic(vm.MakeCustomError("TmplGroup", err.Error()))
		}
		return obj
	})
}

func newGroupObject(vm *otto.Otto) (otto.Value, error) {
	g := group.New()
	obj, err := vm.Object(`({})`)
	if err != nil {
		return otto.Value{}, err
	}

	throw := func(err error) otto.Value {
		panic(vm.MakeCustomError("TmplGroup", err.Error()))
	}
	toValue := func(v interface{}) otto.Value {
		val, err := vm.ToValue(v)
		if err != nil {
			return throw(err)
		}
		return val
	}

	methods := map[string]func(call otto.FunctionCall) otto.Value{
		"addTmpl": func(call otto.FunctionCall) otto.Value {
			path := call.Argument(0).String()
			src := call.Argument(1).String()
			warnings := g.AddTmpl(path, src)
			return toValue(warningStrings(warnings))
		},
		"addScript": func(call otto.FunctionCall) otto.Value {
			g.AddScript(call.Argument(0).String(), call.Argument(1).String())
			return otto.UndefinedValue()
		},
		"getDirectDependencies": func(call otto.FunctionCall) otto.Value {
			deps, err := g.DirectDependencies(call.Argument(0).String())
			if err != nil {
				return throw(err)
			}
			return toValue(deps)
		},
		"getScriptDependencies": func(call otto.FunctionCall) otto.Value {
			deps, err := g.ScriptDependencies(call.Argument(0).String())
			if err != nil {
				return throw(err)
			}
			return toValue(deps)
		},
		"getInlineScriptModuleNames": func(call otto.FunctionCall) otto.Value {
			names, err := g.InlineScriptModuleNames(call.Argument(0).String())
			if err != nil {
				return throw(err)
			}
			return toValue(names)
		},
		"getInlineScript": func(call otto.FunctionCall) otto.Value {
			content, err := g.InlineScriptContent(call.Argument(0).String(), call.Argument(1).String())
			if err != nil {
				return throw(err)
			}
			return toValue(content)
		},
		"setInlineScript": func(call otto.FunctionCall) otto.Value {
			err := g.SetInlineScriptContent(call.Argument(0).String(), call.Argument(1).String(), call.Argument(2).String())
			if err != nil {
				return throw(err)
			}
			return otto.UndefinedValue()
		},
		"getTmplGenObject": func(call otto.FunctionCall) otto.Value {
			s, err := g.TmplGenObject(call.Argument(0).String())
			if err != nil {
				return throw(err)
			}
			return toValue(s)
		},
		"getTmplGenObjectGroups": func(call otto.FunctionCall) otto.Value {
			s, err := g.TmplGenObjectGroups()
			if err != nil {
				return throw(err)
			}
			return toValue(s)
		},
		"getWxGenObjectGroups": func(call otto.FunctionCall) otto.Value {
			s, err := g.WxGenObjectGroups()
			if err != nil {
				return throw(err)
			}
			return toValue(s)
		},
		"exportGlobals": func(call otto.FunctionCall) otto.Value {
			s, err := g.ExportGlobals()
			if err != nil {
				return throw(err)
			}
			return toValue(s)
		},
		"exportAllScripts": func(call otto.FunctionCall) otto.Value {
			s, err := g.ExportAllScripts()
			if err != nil {
				return throw(err)
			}
			return toValue(s)
		},
	}
	for name, fn := range methods {
		if err := obj.Set(name, fn); err != nil {
			return otto.Value{}, err
		}
	}
	return obj.Value(), nil
}

func warningStrings(warnings []parse.Error) []string {
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = fmt.Sprintf("%s (code 0x%x, %s)", w.Error(), w.Kind.Code(), w.Level())
	}
	return out
}
