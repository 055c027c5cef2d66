// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
)

// Parse tokenizes and parses src, returning a slice of raw statements (each
// either a Statement or, for rules with an else-chain, a []*Rule). Callers
// should use ParseStatements/ParseModule rather than this function directly.
func Parse(filename string, src []byte) (interface{}, error) {
	toks, err := newLexer(src).lex()
	if err != nil {
		return nil, errList{err}
	}
	p := &parser{toks: toks, file: filename}
	stmts, errs := p.parseProgram()
	if len(errs) > 0 {
		return nil, errList(errs)
	}
	out := make([]interface{}, len(stmts))
	for i, s := range stmts {
		out[i] = s
	}
	return out, nil
}

type parser struct {
	toks []token
	pos  int
	file string
}

func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *parser) loc() *Location {
	t := p.cur()
	return NewLocation(nil, p.file, t.row, t.col)
}

func (p *parser) errHere(format string, a ...interface{}) error {
	t := p.cur()
	return &parserError{pos: position{line: t.row, col: t.col}, Inner: fmt.Errorf(format, a...)}
}

func (p *parser) advance() token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) isIdent(s string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) isEOF() bool {
	return p.cur().kind == tokEOF
}

func (p *parser) isNL() bool {
	return p.cur().kind == tokNewline
}

// skipNLs consumes any run of newline tokens at the current position. Used
// at statement boundaries and inside brackets where newlines are
// insignificant.
func (p *parser) skipNLs() {
	for p.isNL() {
		p.advance()
	}
}

func (p *parser) skipSeparators() {
	for p.isNL() || p.isPunct(";") {
		p.advance()
	}
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errHere("expected %q", s)
	}
	p.advance()
	return nil
}

// parseProgram parses an entire source file into a list of top-level raw
// results, matching what ParseStatements expects from Parse: each element is
// either a Statement or a []*Rule (an else-chain collapsed by the rule
// parser).
func (p *parser) parseProgram() ([]interface{}, []error) {
	var out []interface{}
	var errs []error

	p.skipSeparators()
	for !p.isEOF() {
		start := p.pos
		x, err := p.parseTopLevel()
		if err != nil {
			errs = append(errs, err)
			// error recovery: skip to next separator to keep collecting errors.
			if p.pos == start {
				p.advance()
			}
			for !p.isEOF() && !p.isNL() && !p.isPunct(";") {
				p.advance()
			}
		} else {
			out = append(out, x)
		}
		p.skipSeparators()
	}
	return out, errs
}

func (p *parser) parseTopLevel() (interface{}, error) {
	switch {
	case p.isIdent("package"):
		return p.parsePackage()
	case p.isIdent("import"):
		return p.parseImport()
	case p.isIdent("default"):
		r, err := p.parseDefaultRule()
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return p.parseRuleOrBody()
	}
}

func (p *parser) parsePackage() (*Package, error) {
	loc := p.loc()
	p.advance() // package
	ref, err := p.parsePackageRef()
	if err != nil {
		return nil, err
	}
	return &Package{Location: loc, Path: ref}, nil
}

// parsePackageRef parses a dotted path of identifiers into a ref rooted at
// "data", e.g. `foo.bar.baz` -> data.foo.bar.baz.
func (p *parser) parsePackageRef() (Ref, error) {
	if p.cur().kind != tokIdent && p.cur().kind != tokVar {
		return nil, p.errHere("expected package path")
	}
	first := p.advance()
	ref := Ref{VarTerm("data").SetLocation(p.loc()), StringTerm(first.text)}
	for p.isPunct(".") {
		p.advance()
		if p.cur().kind != tokIdent {
			return nil, p.errHere("expected identifier after '.'")
		}
		t := p.advance()
		ref = append(ref, StringTerm(t.text))
	}
	return ref, nil
}

func (p *parser) parseImport() (*Import, error) {
	loc := p.loc()
	p.advance() // import
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	imp := &Import{Location: loc, Path: term}
	if p.isIdent("as") {
		p.advance()
		if p.cur().kind != tokIdent {
			return nil, p.errHere("expected identifier after 'as'")
		}
		imp.Alias = Var(p.advance().text)
	}
	return imp, nil
}

// parseRuleOrBody parses either a rule definition or a bare body/constant
// assignment. It returns either *Rule, []*Rule (an else chain) or Body.
func (p *parser) parseRuleOrBody() (interface{}, error) {
	save := p.pos
	head, ok, err := p.tryParseHead()
	if err != nil {
		return nil, err
	}
	if !ok {
		p.pos = save
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		return body, nil
	}

	rule := &Rule{Location: head.Location, Head: head}

	switch {
	case p.isPunct("{"):
		body, err := p.parseBraceBody()
		if err != nil {
			return nil, err
		}
		rule.Body = body
	case p.isIdent("if"):
		p.advance()
		body, err := p.parseIfBody()
		if err != nil {
			return nil, err
		}
		rule.Body = body
	default:
		rule.Body = NewBody(&Expr{Terms: BooleanTerm(true)})
	}

	chain := []*Rule{rule}
	cur := rule
	for p.isIdent("else") {
		p.advance()
		elseHead := &Head{Location: p.loc(), Name: head.Name, Args: head.Args}
		if p.isPunct("=") || p.isPunct(":=") {
			p.advance()
			v, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			elseHead.Value = v
		} else if head.Value != nil {
			elseHead.Value = BooleanTerm(true)
		}
		elseRule := &Rule{Location: elseHead.Location, Head: elseHead}
		switch {
		case p.isPunct("{"):
			b, err := p.parseBraceBody()
			if err != nil {
				return nil, err
			}
			elseRule.Body = b
		case p.isIdent("if"):
			p.advance()
			b, err := p.parseIfBody()
			if err != nil {
				return nil, err
			}
			elseRule.Body = b
		default:
			elseRule.Body = NewBody(&Expr{Terms: BooleanTerm(true)})
		}
		cur.Else = elseRule
		chain = append(chain, elseRule)
		cur = elseRule
	}

	if len(chain) == 1 {
		return rule, nil
	}
	return chain, nil
}

// parseIfBody parses the body following the `if` keyword: either a braced
// block or a single expression (rego.v1 shorthand).
func (p *parser) parseIfBody() (Body, error) {
	if p.isPunct("{") {
		return p.parseBraceBody()
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return NewBody(e), nil
}

// tryParseHead attempts to parse a rule head (the part before `{`/`if`/end
// of statement). It returns ok=false (without consuming input) if what
// follows does not look like a rule head, so the caller can fall back to
// parsing a bare body.
func (p *parser) tryParseHead() (*Head, bool, error) {
	if p.cur().kind != tokIdent && p.cur().kind != tokVar {
		return nil, false, nil
	}
	loc := p.loc()
	nameTok := p.advance()
	name := Var(nameTok.text)

	head := &Head{Location: loc, Name: name}

	if p.isPunct("(") && !p.cur().noSpaceBefore {
		// function rule: name(args)
	}
	if p.isPunct("(") {
		p.advance()
		p.skipNLs()
		for !p.isPunct(")") {
			arg, err := p.parseTerm()
			if err != nil {
				return nil, false, err
			}
			head.Args = append(head.Args, arg)
			p.skipNLs()
			if p.isPunct(",") {
				p.advance()
				p.skipNLs()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, false, err
		}
		if p.isPunct("=") || p.isPunct(":=") {
			p.advance()
			v, err := p.parseTerm()
			if err != nil {
				return nil, false, err
			}
			head.Value = v
		} else {
			head.Value = BooleanTerm(true)
		}
		return head, true, nil
	}

	if p.isPunct("[") {
		p.advance()
		key, err := p.parseTerm()
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, false, err
		}
		head.Key = key
		if p.isPunct("=") || p.isPunct(":=") {
			p.advance()
			v, err := p.parseTerm()
			if err != nil {
				return nil, false, err
			}
			head.Value = v
		}
		return head, true, nil
	}

	if p.isIdent("contains") {
		p.advance()
		key, err := p.parseTerm()
		if err != nil {
			return nil, false, err
		}
		head.Key = key
		return head, true, nil
	}

	if p.isPunct("=") || p.isPunct(":=") {
		p.advance()
		v, err := p.parseTerm()
		if err != nil {
			return nil, false, err
		}
		// An equality with no following `{`/`if` is a module-level
		// constant, not a rule head; let the caller fall back to body
		// parsing for ParseRuleFromBody to pick up, unless it is clearly
		// rule-shaped (followed by `{` or `if`).
		if !p.isPunct("{") && !p.isIdent("if") {
			return nil, false, nil
		}
		head.Value = v
		return head, true, nil
	}

	if p.isPunct("{") || p.isIdent("if") {
		head.Value = BooleanTerm(true)
		return head, true, nil
	}

	return nil, false, nil
}

func (p *parser) parseDefaultRule() (*Rule, error) {
	loc := p.loc()
	p.advance() // default
	if p.cur().kind != tokIdent && p.cur().kind != tokVar {
		return nil, p.errHere("expected rule name after 'default'")
	}
	name := Var(p.advance().text)
	head := &Head{Location: loc, Name: name}

	if p.isPunct("(") {
		p.advance()
		p.skipNLs()
		for !p.isPunct(")") {
			arg, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			head.Args = append(head.Args, arg)
			p.skipNLs()
			if p.isPunct(",") {
				p.advance()
				p.skipNLs()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	v, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	head.Value = v

	return &Rule{Location: loc, Default: true, Head: head, Body: NewBody(&Expr{Terms: BooleanTerm(true)})}, nil
}

// parseBraceBody parses `{ expr; expr; ... }`.
func (p *parser) parseBraceBody() (Body, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	body := Body{}
	p.skipSeparators()
	for !p.isPunct("}") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body = append(body, e)
		if !p.isNL() && !p.isPunct(";") && !p.isPunct("}") {
			return nil, p.errHere("expected newline, ';' or '}'")
		}
		p.skipSeparators()
	}
	p.advance() // }
	if len(body) == 0 {
		return nil, p.errHere("rule body cannot be empty")
	}
	return body, nil
}

// parseBody parses a bare top-level body (one or more expressions separated
// by newlines/';', with no enclosing braces). Used for module-level
// constants and REPL-style fragments.
func (p *parser) parseBody() (Body, error) {
	body := Body{}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body = append(body, e)
		if p.isNL() || p.isPunct(";") {
			break
		}
		if p.isEOF() {
			break
		}
		return nil, p.errHere("unexpected token in body")
	}
	return body, nil
}

func (p *parser) parseExpr() (*Expr, error) {
	loc := p.loc()
	negated := false
	if p.isIdent("not") {
		negated = true
		p.advance()
	}

	if p.isIdent("some") {
		return p.parseSome(loc)
	}
	if p.isIdent("every") {
		return p.parseEvery(loc)
	}

	t, err := p.parseExprTerm()
	if err != nil {
		return nil, err
	}

	expr := &Expr{Location: loc, Negated: negated, Terms: t}

	for p.isIdent("with") {
		w, err := p.parseWith()
		if err != nil {
			return nil, err
		}
		expr.With = append(expr.With, w)
	}

	return expr, nil
}

func (p *parser) parseWith() (*With, error) {
	loc := p.loc()
	p.advance() // with
	target, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if err := p.expectIdent("as"); err != nil {
		return nil, err
	}
	value, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return &With{Location: loc, Target: target, Value: value}, nil
}

func (p *parser) expectIdent(s string) error {
	if !p.isIdent(s) {
		return p.errHere("expected %q", s)
	}
	p.advance()
	return nil
}

func (p *parser) parseSome(loc *Location) (*Expr, error) {
	p.advance() // some
	decl := &SomeDecl{}
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	decl.Symbols = append(decl.Symbols, first)
	for p.isPunct(",") {
		p.advance()
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		decl.Symbols = append(decl.Symbols, t)
	}
	if p.isIdent("in") {
		p.advance()
		if len(decl.Symbols) == 2 {
			decl.Key, decl.Symbols = decl.Symbols[0], decl.Symbols[1:]
		}
		decl.Value = decl.Symbols[0]
		decl.Symbols = nil
		dom, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		decl.Domain = dom
	}
	return &Expr{Location: loc, Some: decl, Terms: BooleanTerm(true)}, nil
}

func (p *parser) parseEvery(loc *Location) (*Expr, error) {
	p.advance() // every
	decl := &EveryDecl{}
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.isPunct(",") {
		p.advance()
		second, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		decl.Key = first
		decl.Value = second
	} else {
		decl.Value = first
	}
	if err := p.expectIdent("in"); err != nil {
		return nil, err
	}
	dom, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	decl.Domain = dom
	body, err := p.parseBraceBody()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return &Expr{Location: loc, Every: decl, Terms: BooleanTerm(true)}, nil
}

// parseExprTerm parses the term(s) that make up an expression: either a
// single term, or `<term> <op> <term>` for the relational/assignment
// operators which become calls in the AST (["eq", a, b] etc).
func (p *parser) parseExprTerm() (interface{}, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	if p.isPunct("(") && p.cur().noSpaceBefore {
		switch lhs.Value.(type) {
		case Var, Ref:
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			terms := append([]*Term{lhs}, args...)
			return terms, nil
		}
	}

	op, ok := p.matchRelOp()
	if !ok {
		return lhs, nil
	}
	p.advance()
	rhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return []*Term{VarTerm(op).SetLocation(lhs.Location), lhs, rhs}, nil
}

func (p *parser) matchRelOp() (string, bool) {
	t := p.cur()
	if t.kind != tokPunct && t.kind != tokIdent {
		return "", false
	}
	switch t.text {
	case "=":
		return "eq", true
	case ":=":
		return "assign", true
	case "==":
		return "equal", true
	case "!=":
		return "neq", true
	case "<":
		return "lt", true
	case "<=":
		return "lte", true
	case ">":
		return "gt", true
	case ">=":
		return "gte", true
	case "in":
		return "internal.member_2", true
	}
	return "", false
}

// parseTerm parses the full infix precedence ladder (set union/intersection,
// then +/-, then * / %, then unary/primary), folding binary operators into
// Call terms so they can nest inside array/object literals and call
// arguments (`x := [a + b, count(s) - 1]`).
func (p *parser) parseTerm() (*Term, error) {
	return p.parseSetOr()
}

func (p *parser) parseSetOr() (*Term, error) {
	lhs, err := p.parseSetAnd()
	if err != nil {
		return nil, err
	}
	for p.isPunct("|") {
		loc := p.loc()
		p.advance()
		rhs, err := p.parseSetAnd()
		if err != nil {
			return nil, err
		}
		lhs = CallTerm(VarTerm("or").SetLocation(loc), lhs, rhs).SetLocation(loc)
	}
	return lhs, nil
}

func (p *parser) parseSetAnd() (*Term, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.isPunct("&") {
		loc := p.loc()
		p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = CallTerm(VarTerm("and").SetLocation(loc), lhs, rhs).SetLocation(loc)
	}
	return lhs, nil
}

func (p *parser) parseAdditive() (*Term, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.cur().text
		loc := p.loc()
		p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		name := "plus"
		if op == "-" {
			name = "minus"
		}
		lhs = CallTerm(VarTerm(name).SetLocation(loc), lhs, rhs).SetLocation(loc)
	}
	return lhs, nil
}

func (p *parser) parseMultiplicative() (*Term, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.cur().text
		loc := p.loc()
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		name := map[string]string{"*": "mul", "/": "div", "%": "rem"}[op]
		lhs = CallTerm(VarTerm(name).SetLocation(loc), lhs, rhs).SetLocation(loc)
	}
	return lhs, nil
}

func (p *parser) parseUnary() (*Term, error) {
	if p.isPunct("-") {
		loc := p.loc()
		p.advance()
		t, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if n, ok := t.Value.(Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, p.errHere("invalid number literal: %v", err)
			}
			return NewTerm(FloatNumber(-f)).SetLocation(loc), nil
		}
		return CallTerm(VarTerm("minus").SetLocation(loc), IntNumberTerm(0).SetLocation(loc), t).SetLocation(loc), nil
	}
	return p.parsePrimaryWithSuffix()
}

func (p *parser) parsePrimaryWithSuffix() (*Term, error) {
	t, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct(".") && p.cur().noSpaceBefore:
			p.advance()
			if p.cur().kind != tokIdent {
				return nil, p.errHere("expected identifier after '.'")
			}
			key := p.advance().text
			t = p.appendRef(t, StringTerm(key))
		case p.isPunct("[") && p.cur().noSpaceBefore:
			p.advance()
			idx, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			t = p.appendRef(t, idx)
		default:
			return t, nil
		}
	}
}

func (p *parser) parseCallArgs() ([]*Term, error) {
	p.advance() // (
	p.skipNLs()
	var args []*Term
	for !p.isPunct(")") {
		a, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		p.skipNLs()
		if p.isPunct(",") {
			p.advance()
			p.skipNLs()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) appendRef(t *Term, key *Term) *Term {
	switch v := t.Value.(type) {
	case Ref:
		return RefTerm(append(append(Ref{}, v...), key)).SetLocation(t.Location)
	case Var:
		return RefTerm(Ref{t, key}).SetLocation(t.Location)
	default:
		return RefTerm(Ref{t, key}).SetLocation(t.Location)
	}
}

func (p *parser) parsePrimary() (*Term, error) {
	loc := p.loc()
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		return NewTerm(Number(t.text)).SetLocation(loc), nil
	case tokString:
		p.advance()
		return StringTerm(t.text).SetLocation(loc), nil
	case tokRawString:
		p.advance()
		return StringTerm(t.text).SetLocation(loc), nil
	case tokVar:
		p.advance()
		return Wildcard.Copy().SetLocation(loc), nil
	case tokIdent:
		switch t.text {
		case "true":
			p.advance()
			return BooleanTerm(true).SetLocation(loc), nil
		case "false":
			p.advance()
			return BooleanTerm(false).SetLocation(loc), nil
		case "null":
			p.advance()
			return NullTerm().SetLocation(loc), nil
		}
		p.advance()
		return VarTerm(t.text).SetLocation(loc), nil
	case tokPunct:
		switch t.text {
		case "(":
			p.advance()
			inner, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return inner, nil
		case "[":
			return p.parseArray(loc)
		case "{":
			return p.parseObjectOrSetOrComprehension(loc)
		}
	}
	return nil, p.errHere("unexpected token %q", t.text)
}

// parseArray parses an array literal `[a, b, c]` or an array comprehension
// `[term | body]`.
func (p *parser) parseArray(loc *Location) (*Term, error) {
	p.advance() // [
	p.skipNLs()
	if p.isPunct("]") {
		p.advance()
		return ArrayTerm().SetLocation(loc), nil
	}
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipNLs()
	if p.isPunct("|") {
		p.advance()
		body, err := p.parseComprehensionBody()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return ArrayComprehensionTerm(first, body).SetLocation(loc), nil
	}
	elems := []*Term{first}
	for p.isPunct(",") {
		p.advance()
		p.skipNLs()
		if p.isPunct("]") {
			break
		}
		e, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		p.skipNLs()
	}
	p.skipNLs()
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return ArrayTerm(elems...).SetLocation(loc), nil
}

func (p *parser) parseObjectOrSetOrComprehension(loc *Location) (*Term, error) {
	p.advance() // {
	p.skipNLs()
	if p.isPunct("}") {
		p.advance()
		return ObjectTerm().SetLocation(loc), nil
	}

	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipNLs()

	if p.isPunct(":") {
		p.advance()
		p.skipNLs()
		val, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		p.skipNLs()
		if p.isPunct("|") {
			p.advance()
			body, err := p.parseComprehensionBody()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("}"); err != nil {
				return nil, err
			}
			return ObjectComprehensionTerm(first, val, body).SetLocation(loc), nil
		}
		pairs := [][2]*Term{{first, val}}
		for p.isPunct(",") {
			p.advance()
			p.skipNLs()
			if p.isPunct("}") {
				break
			}
			k, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			v, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, [2]*Term{k, v})
			p.skipNLs()
		}
		p.skipNLs()
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		obj := NewObject(pairs...)
		return NewTerm(obj).SetLocation(loc), nil
	}

	if p.isPunct("|") {
		p.advance()
		body, err := p.parseComprehensionBody()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return SetComprehensionTerm(first, body).SetLocation(loc), nil
	}

	elems := []*Term{first}
	for p.isPunct(",") {
		p.advance()
		p.skipNLs()
		if p.isPunct("}") {
			break
		}
		e, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		p.skipNLs()
	}
	p.skipNLs()
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return SetTerm(elems...).SetLocation(loc), nil
}

func (p *parser) parseComprehensionBody() (Body, error) {
	p.skipNLs()
	body := Body{}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body = append(body, e)
		p.skipNLs()
		if p.isPunct(";") {
			p.advance()
			p.skipNLs()
			continue
		}
		break
	}
	return body, nil
}
