package parse_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/parse"
	"github.com/wxtool/wxc/stringify"
)

// Parsing S, stringifying canonically to S', and re-parsing S' must yield
// a template equal to the first modulo source ranges.
func TestCanonicalRoundTripAST(t *testing.T) {
	sources := []string{
		`<view>{{ msg }}</view>`,
		`<b wx:if="{{a}}">1</b><b wx:elif="{{a+1}}">2</b><b wx:else>3</b>`,
		`<b wx:for="{{list}}" wx:key="v">{{item.v}}</b>`,
		`<slot name="s"/><include src="a/b"/><import src="c"/>`,
		`<wxs module="m">exports.x = 1</wxs><div mark:k="{{v}}" bindtap="h"/>`,
		`<b a="x{{ y }}z"/>`,
	}
	ignore := cmp.Options{
		cmpopts.IgnoreTypes(ast.Range{}),
		cmpopts.IgnoreTypes(&ast.BindingMapKeys{}),
	}
	for _, src := range sources {
		first, warnings := parse.Tmpl("TEST", src)
		for _, w := range warnings {
			if w.PreventSuccess() {
				t.Fatalf("source %q does not compile: %v", src, w)
			}
		}
		s := stringify.New("TEST", src, stringify.Options{Minimize: true})
		s.Run(first)
		out, _ := s.Finish()

		second, _ := parse.Tmpl("TEST", out)
		if diff := cmp.Diff(first, second, ignore...); diff != "" {
			t.Errorf("round trip of %q changed the tree (-first +second):\n%s", src, diff)
		}
	}
}
