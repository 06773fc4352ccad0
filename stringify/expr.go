package stringify

import (
	"github.com/wxtool/wxc/ast"
	"github.com/wxtool/wxc/parse"
)

// Expression emission, shared by the canonical and TS-flavored modes.
// Parentheses are re-derived from precedence rather than stored in the AST.

const (
	precCond = iota + 1
	precOr
	precAnd
	precEq
	precCmp
	precAdd
	precMul
	precUnary
	precMember
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "==", "!=", "===", "!==":
		return precEq
	case "<", "<=", ">", ">=":
		return precCmp
	case "+", "-":
		return precAdd
	case "*", "/", "%":
		return precMul
	}
	return precPrimary
}

// exprMode selects the surface flavor of expression output.
type exprMode struct {
	// mangling renames scope refs and wraps member bases in the
	// undefined-safe helper `X(...)`, with the string coercion emitted as
	// `Y(...)`.
	mangling bool
	// genQuotes forces double-quoted string literals (generated-code
	// flavor); canonical output prefers single quotes for plain text.
	genQuotes bool
}

func (s *Stringifier) writeExpr(e ast.Expression, prec int, mode exprMode) {
	switch e := e.(type) {
	case *ast.LitStr:
		if mode.genQuotes {
			s.WriteToken(parse.GenLitStr(e.Value), "", e.Loc)
		} else {
			s.WriteToken(parse.QuoteLitStr(e.Value), "", e.Loc)
		}
	case *ast.LitNum:
		s.WriteToken(e.Raw, "", e.Loc)
	case *ast.LitBool:
		if e.Value {
			s.WriteToken("true", "", e.Loc)
		} else {
			s.WriteToken("false", "", e.Loc)
		}
	case *ast.LitNull:
		s.WriteToken("null", "", e.Loc)
	case *ast.IdentRef:
		s.WriteToken(e.Name, e.Name, e.Loc)
	case *ast.ScopeRef:
		name := s.ScopeName(e.Index)
		s.WriteToken(name, name, e.Loc)
	case *ast.Member:
		s.withPrec(prec, precMember, func() {
			if mode.mangling {
				s.WriteStr("X(")
				s.writeExpr(e.Obj, precCond, mode)
				s.WriteStr(")")
			} else {
				s.writeExpr(e.Obj, precMember, mode)
			}
			s.WriteStr(".")
			s.WriteToken(e.Field, e.Field, e.FieldLoc)
		})
	case *ast.Index:
		s.withPrec(prec, precMember, func() {
			if mode.mangling {
				s.WriteStr("X(")
				s.writeExpr(e.Obj, precCond, mode)
				s.WriteStr(")")
			} else {
				s.writeExpr(e.Obj, precMember, mode)
			}
			s.WriteStr("[")
			s.writeExpr(e.Arg, precCond, mode)
			s.WriteStr("]")
		})
	case *ast.ObjectLit:
		s.WriteToken("{", "", ast.RangeAt(e.Loc.Start))
		for i, f := range e.Fields {
			if i > 0 {
				s.WriteStr(",")
			}
			if isPlainKey(f.Name) {
				s.WriteToken(f.Name, f.Name, f.NameLoc)
			} else {
				s.WriteToken(parse.GenLitStr(f.Name), "", f.NameLoc)
			}
			s.WriteStr(":")
			s.writeExpr(f.Value, precCond, mode)
		}
		s.WriteToken("}", "", ast.RangeAt(e.Loc.End))
	case *ast.ArrayLit:
		s.WriteToken("[", "", ast.RangeAt(e.Loc.Start))
		for i, it := range e.Items {
			if i > 0 {
				s.WriteStr(",")
			}
			s.writeExpr(it, precCond, mode)
		}
		s.WriteToken("]", "", ast.RangeAt(e.Loc.End))
	case *ast.Unary:
		s.withPrec(prec, precUnary, func() {
			s.WriteToken(e.Op, "", ast.RangeAt(e.Loc.Start))
			s.writeExpr(e.Arg, precUnary, mode)
		})
	case *ast.Binary:
		opPrec := binaryPrec(e.Op)
		s.withPrec(prec, opPrec, func() {
			s.writeExpr(e.Left, opPrec, mode)
			s.WriteToken(e.Op, "", e.OpLoc)
			s.writeExpr(e.Right, opPrec+1, mode)
		})
	case *ast.Cond:
		s.withPrec(prec, precCond, func() {
			s.writeExpr(e.CondExpr, precCond+1, mode)
			s.WriteStr("?")
			s.writeExpr(e.Then, precCond, mode)
			s.WriteStr(":")
			s.writeExpr(e.Else, precCond, mode)
		})
	case *ast.ToStringWithoutUndefined:
		if mode.mangling {
			s.WriteStr("Y(")
			s.writeExpr(e.Arg, precCond, mode)
			s.WriteStr(")")
		} else {
			s.writeExpr(e.Arg, prec, mode)
		}
	}
}

// withPrec wraps f in parentheses when the construct's precedence is below
// what the context requires.
func (s *Stringifier) withPrec(required, actual int, f func()) {
	if actual < required {
		s.WriteStr("(")
		f()
		s.WriteStr(")")
		return
	}
	f()
}

func isPlainKey(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		ok := r == '_' || r == '$' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' ||
			i > 0 && r >= '0' && r <= '9'
		if !ok {
			return false
		}
	}
	return true
}

// ExprString renders an expression in the generated-code flavor; used by
// the generator-object serializer.
func ExprString(e ast.Expression, mangling bool) string {
	return ExprStringWithScopes(e, mangling, nil)
}

// ExprStringWithScopes is ExprString with the scope-name stack the
// expression's scope references resolve against.
func ExprStringWithScopes(e ast.Expression, mangling bool, scopeNames []string) string {
	s := New("", "", Options{Minimize: true})
	s.scopeNames = append(s.scopeNames, scopeNames...)
	s.writeExpr(e, 0, exprMode{mangling: mangling, genQuotes: true})
	out, _ := s.Finish()
	return out
}

func escapeHTMLQuote(v string) string { return parse.EscapeHTMLQuote(v) }

func escapeHTMLText(v string) string { return parse.EscapeHTMLText(v) }
