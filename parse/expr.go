package parse

import (
	"strconv"
	"strings"

	"github.com/wxtool/wxc/ast"
)

// The expression sub-parser: precedence climbing over the characters inside
// `{{ ... }}`. Whitespace and `/* ... */` comments are skipped everywhere.
//
// Precedence, high to low: member/index; unary `! + -`; `* / %`; `+ -`;
// comparisons; equality; `&&`; `||`; ternary.

// binaryLevels lists the binary operator tiers from lowest to highest
// precedence. Longer operators come first within a tier so that `===` is
// not read as `==` followed by `=`.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"===", "!==", "==", "!="},
	{"<=", ">=", "<", ">"},
	{"+", "-"},
	{"*", "/", "%"},
}

// ParseExpr parses a standalone expression (the contents of one `{{...}}`
// without the braces). It always returns an expression; diagnostics carry
// the problems found.
func ParseExpr(path, src string) (ast.Expression, []Error) {
	ps := newState(path, src)
	p := &parser{ps: ps}
	var expr ast.Expression
	ps.withWhitespaceMode(wsJSComments, func() {
		expr = p.parseExpression()
		ps.autoSkip()
		if !ps.ended() {
			start := ps.position()
			ps.skipBytes(len(ps.cur()))
			ps.addWarning(ErrUnexpectedExpressionCharacter, ast.Range{Start: start, End: ps.position()})
		}
	})
	return expr, ps.warnings
}

// parseObjectShorthand parses the brace-less object form used by the
// `data` attribute of a template reference: `{{ bb: a + 1, cc: false }}`.
// It reports failure without consuming input when the content is not a
// field list, so the caller can fall back to a plain expression.
func (p *parser) parseObjectShorthand() (ast.Expression, bool) {
	ps := p.ps
	var fields []ast.ObjectField
	start := ps.position()
	ok := ps.tryParse(func() bool {
		for {
			name, nameLoc, ok := p.consumeIdentName()
			if !ok {
				return false
			}
			if _, ok := ps.consumeStr(":"); !ok {
				return false
			}
			fields = append(fields, ast.ObjectField{Name: name, NameLoc: nameLoc, Value: p.parseExpression()})
			if _, ok := ps.consumeStr(","); ok {
				continue
			}
			ps.autoSkip()
			return ps.peekStr("}}") || ps.ended()
		}
	})
	if !ok {
		return nil, false
	}
	return &ast.ObjectLit{Fields: fields, Loc: ast.Range{Start: start, End: ps.position()}}, true
}

// parseExpression parses a full expression including ternaries. The
// whitespace mode must already be wsJSComments.
func (p *parser) parseExpression() ast.Expression {
	cond := p.parseBinary(0)
	if _, ok := p.ps.consumeStr("?"); !ok {
		return cond
	}
	then := p.parseExpression()
	if _, ok := p.ps.consumeStr(":"); !ok {
		p.ps.addWarningAt(ErrIncompleteConditionExpression)
		return cond
	}
	els := p.parseExpression()
	return &ast.Cond{
		CondExpr: cond,
		Then:     then,
		Else:     els,
		Loc:      ast.Range{Start: cond.Location().Start, End: els.Location().End},
	}
}

func (p *parser) parseBinary(level int) ast.Expression {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for {
		matched := false
		for _, op := range binaryLevels[level] {
			var opLoc ast.Range
			var ok bool
			switch op {
			case "<":
				// do not read `<=` as `<`
				opLoc, ok = p.ps.consumeStrExceptFollowed(op, []string{"="})
			case ">":
				opLoc, ok = p.ps.consumeStrExceptFollowed(op, []string{"="})
			case "==", "!=":
				opLoc, ok = p.ps.consumeStrExceptFollowed(op, []string{"="})
			case "+", "-":
				opLoc, ok = p.ps.consumeStr(op)
			case "/":
				opLoc, ok = p.ps.consumeStrExceptFollowed(op, []string{"*"})
			default:
				opLoc, ok = p.ps.consumeStr(op)
			}
			if !ok {
				continue
			}
			right := p.parseBinary(level + 1)
			left = &ast.Binary{
				Op:    op,
				Left:  left,
				Right: right,
				OpLoc: opLoc,
				Loc:   ast.Range{Start: left.Location().Start, End: right.Location().End},
			}
			matched = true
			break
		}
		if !matched {
			return left
		}
	}
}

func (p *parser) parseUnary() ast.Expression {
	for _, op := range []string{"!", "+", "-"} {
		var loc ast.Range
		var ok bool
		switch op {
		case "!":
			loc, ok = p.ps.consumeStrExceptFollowed(op, []string{"="})
		case "+", "-":
			loc, ok = p.ps.consumeStr(op)
		}
		if !ok {
			continue
		}
		arg := p.parseUnary()
		return &ast.Unary{
			Op:  op,
			Arg: arg,
			Loc: ast.Range{Start: loc.Start, End: arg.Location().End},
		}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		if _, ok := p.ps.consumeStrExceptFollowedChar(".", func(r rune) bool { return r >= '0' && r <= '9' }); ok {
			name, nameLoc, ok := p.consumeIdentName()
			if !ok {
				p.ps.addWarningAt(ErrInvalidIdentifier)
				return expr
			}
			expr = &ast.Member{
				Obj:      expr,
				Field:    name,
				FieldLoc: nameLoc,
				Loc:      ast.Range{Start: expr.Location().Start, End: nameLoc.End},
			}
			continue
		}
		if _, ok := p.ps.consumeStr("["); ok {
			arg := p.parseExpression()
			end, ok := p.ps.consumeStr("]")
			if !ok {
				p.ps.addWarningAt(ErrUnmatchedBracket)
				return expr
			}
			expr = &ast.Index{
				Obj: expr,
				Arg: arg,
				Loc: ast.Range{Start: expr.Location().Start, End: end.End},
			}
			continue
		}
		return expr
	}
}

func (p *parser) parsePrimary() ast.Expression {
	ps := p.ps
	if _, ok := ps.consumeStr("("); ok {
		inner := p.parseExpression()
		if _, ok := ps.consumeStr(")"); !ok {
			ps.addWarningAt(ErrUnmatchedParenthesis)
		}
		return inner
	}
	if loc, ok := ps.consumeStr("["); ok {
		return p.parseArrayLit(loc)
	}
	if loc, ok := ps.consumeStr("{"); ok {
		return p.parseObjectLit(loc)
	}
	if loc, ok := ps.consumeStrExceptFollowedChar("true", isIdentChar); ok {
		return &ast.LitBool{Value: true, Loc: loc}
	}
	if loc, ok := ps.consumeStrExceptFollowedChar("false", isIdentChar); ok {
		return &ast.LitBool{Value: false, Loc: loc}
	}
	if loc, ok := ps.consumeStrExceptFollowedChar("null", isIdentChar); ok {
		return &ast.LitNull{Loc: loc}
	}
	if r, ok := ps.peek(0); ok {
		switch {
		case r == '\'' || r == '"':
			return p.parseStringLit(r)
		case r >= '0' && r <= '9':
			return p.parseNumberLit()
		case isIdentStartChar(r):
			name, loc, _ := p.consumeIdentName()
			if idx, ok := p.lookupScope(name); ok {
				return &ast.ScopeRef{Name: name, Index: idx, Loc: loc}
			}
			return &ast.IdentRef{Name: name, Loc: loc}
		}
	}
	// Cannot form a primary here. Report and yield a placeholder so the
	// caller still has a tree to return.
	pos := ps.position()
	if r, ok := ps.peek(0); ok && !strings.HasPrefix(ps.cur(), "}}") {
		size := len(string(r))
		ps.skipBytes(size)
		ps.addWarning(ErrUnexpectedExpressionCharacter, ast.Range{Start: pos, End: ps.position()})
	}
	return &ast.LitNull{Loc: ast.RangeAt(pos)}
}

func (p *parser) parseArrayLit(open ast.Range) ast.Expression {
	ps := p.ps
	var items []ast.Expression
	if end, ok := ps.consumeStr("]"); ok {
		return &ast.ArrayLit{Loc: ast.Range{Start: open.Start, End: end.End}}
	}
	for {
		items = append(items, p.parseExpression())
		if _, ok := ps.consumeStr(","); ok {
			continue
		}
		end, ok := ps.consumeStr("]")
		if !ok {
			ps.addWarningAt(ErrUnmatchedBracket)
			end = ast.RangeAt(ps.position())
		}
		return &ast.ArrayLit{Items: items, Loc: ast.Range{Start: open.Start, End: end.End}}
	}
}

func (p *parser) parseObjectLit(open ast.Range) ast.Expression {
	ps := p.ps
	var fields []ast.ObjectField
	if end, ok := ps.consumeStr("}"); ok {
		return &ast.ObjectLit{Loc: ast.Range{Start: open.Start, End: end.End}}
	}
	for {
		var name string
		var nameLoc ast.Range
		if r, ok := ps.peek(0); ok && (r == '\'' || r == '"') {
			lit := p.parseStringLit(r)
			str := lit.(*ast.LitStr)
			name, nameLoc = str.Value, str.Loc
		} else if n, loc, ok := p.consumeIdentName(); ok {
			name, nameLoc = n, loc
		} else {
			ps.addWarningAt(ErrUnexpectedExpressionCharacter)
			break
		}
		if _, ok := ps.consumeStr(":"); !ok {
			ps.addWarningAt(ErrUnexpectedExpressionCharacter)
			break
		}
		fields = append(fields, ast.ObjectField{Name: name, NameLoc: nameLoc, Value: p.parseExpression()})
		if _, ok := ps.consumeStr(","); ok {
			continue
		}
		break
	}
	end, ok := ps.consumeStr("}")
	if !ok {
		ps.addWarningAt(ErrUnmatchedBracket)
		end = ast.RangeAt(ps.position())
	}
	return &ast.ObjectLit{Fields: fields, Loc: ast.Range{Start: open.Start, End: end.End}}
}

// parseStringLit scans a quoted string with `\n \t \r \\ \' \" \uXXXX \xXX`
// escapes. An unterminated literal runs to the end of input; the caller's
// missing `}}` check reports it.
func (p *parser) parseStringLit(quote rune) ast.Expression {
	ps := p.ps
	start := ps.position()
	ps.next() // the opening quote
	var b strings.Builder
	ps.withWhitespaceMode(wsOff, func() {
		for {
			r, ok := ps.next()
			if !ok {
				return
			}
			if r == quote {
				return
			}
			if r != '\\' {
				b.WriteRune(r)
				continue
			}
			escStart := ps.position()
			e, ok := ps.next()
			if !ok {
				return
			}
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteRune(e)
			case 'u', 'x':
				n := 4
				if e == 'x' {
					n = 2
				}
				hex := ps.cur()
				if len(hex) >= n {
					if v, err := strconv.ParseUint(hex[:n], 16, 32); err == nil {
						ps.skipBytes(n)
						b.WriteRune(rune(v))
						continue
					}
				}
				ps.addWarning(ErrIllegalEscapeSequence, ast.Range{Start: escStart, End: ps.position()})
				b.WriteByte('\\')
				b.WriteRune(e)
			default:
				ps.addWarning(ErrIllegalEscapeSequence, ast.Range{Start: escStart, End: ps.position()})
				b.WriteByte('\\')
				b.WriteRune(e)
			}
		}
	})
	return &ast.LitStr{Value: b.String(), Loc: ast.Range{Start: start, End: ps.position()}}
}

func (p *parser) parseNumberLit() ast.Expression {
	ps := p.ps
	start := ps.position()
	startIdx := ps.idx
	var raw string
	ps.withWhitespaceMode(wsOff, func() {
		s := ps.cur()
		n := 0
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n = 2
			for n < len(s) && isBaseDigit(s[n], 16) {
				n++
			}
		} else {
			for n < len(s) && s[n] >= '0' && s[n] <= '9' {
				n++
			}
			if n < len(s) && s[n] == '.' {
				n++
				for n < len(s) && s[n] >= '0' && s[n] <= '9' {
					n++
				}
			}
			if n < len(s) && (s[n] == 'e' || s[n] == 'E') {
				m := n + 1
				if m < len(s) && (s[m] == '+' || s[m] == '-') {
					m++
				}
				if m < len(s) && s[m] >= '0' && s[m] <= '9' {
					for m < len(s) && s[m] >= '0' && s[m] <= '9' {
						m++
					}
					n = m
				}
			}
		}
		ps.skipBytes(n)
	})
	raw = ps.src[startIdx:ps.idx]
	loc := ast.Range{Start: start, End: ps.position()}
	if i, err := strconv.ParseInt(raw, 0, 64); err == nil {
		return &ast.LitNum{Raw: raw, Value: float64(i), IsInt: true, Int: i, Loc: loc}
	}
	f, _ := strconv.ParseFloat(raw, 64)
	return &ast.LitNum{Raw: raw, Value: f, Loc: loc}
}

// consumeIdentName reads an identifier `[A-Za-z_$][A-Za-z0-9_$]*`.
func (p *parser) consumeIdentName() (string, ast.Range, bool) {
	ps := p.ps
	r, ok := ps.peek(0)
	if !ok || !isIdentStartChar(r) {
		return "", ast.Range{}, false
	}
	start := ps.position()
	startIdx := ps.idx
	ps.withWhitespaceMode(wsOff, func() {
		n := 0
		for _, c := range ps.cur() {
			if !isIdentChar(c) {
				break
			}
			n += len(string(c))
		}
		ps.skipBytes(n)
	})
	return ps.src[startIdx:ps.idx], ast.Range{Start: start, End: ps.position()}, true
}

func (p *parser) lookupScope(name string) (int, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if p.scopes[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

func isIdentStartChar(r rune) bool {
	return r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isIdentChar(r rune) bool {
	return isIdentStartChar(r) || r >= '0' && r <= '9'
}
