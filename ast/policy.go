// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
	"strings"
)

// DefaultRootDocument is the default root document.
// All package directives inside source files are implicitly
// prefixed with the DefaultRootDocument value.
var DefaultRootDocument = VarTerm("data")

// InputRootDocument is the root document for the transient input value.
var InputRootDocument = VarTerm("input")

// Keywords is an array of reserved keywords in the language.
// These are reserved names that cannot be used for variables.
var Keywords = [...]string{
	"package", "import", "not", "with", "as", "default", "else",
	"some", "every", "in", "if", "contains",
}

// FutureKeywords lists the keywords only available once imported via
// `import future.keywords` (or `import future.keywords.x`) or implied by
// `import rego.v1`.
var FutureKeywords = [...]string{"in", "every", "if", "contains"}

// ReservedVars is the set of reserved variable names.
var ReservedVars = NewVarSet(DefaultRootDocument.Value.(Var), InputRootDocument.Value.(Var))

// Wildcard represents the wildcard variable as defined in the language.
var Wildcard = &Term{Value: Var("_")}

// WildcardPrefix is the special character that all wildcard variables are
// prefixed with when the statement they are contained in is parsed.
var WildcardPrefix = "$"

// DefaultRootRef is a ref referring to just the data root document.
var DefaultRootRef = Ref{DefaultRootDocument}

// InputRootRef is a ref referring to just the input root document.
var InputRootRef = Ref{InputRootDocument}

// Statement is the interface implemented by every top-level construct the
// parser can produce standalone: a Package, an Import, a Rule, a bare Body,
// or a Comment.
type Statement interface {
	Loc() *Location
}

// Comment represents a single line comment (`# ...`). The lexer discards
// comments, so the parser never produces a Comment; the type exists only
// as a Statement shape.
type Comment struct {
	Location *Location `json:"-"`
	Text     []byte
}

// Loc returns the comment's location.
func (c *Comment) Loc() *Location { return c.Location }

func (c *Comment) String() string { return "#" + string(c.Text) }

// Loc returns the package's location.
func (pkg *Package) Loc() *Location { return pkg.Location }

// Loc returns the import's location.
func (imp *Import) Loc() *Location { return imp.Location }

// Loc returns the rule's location.
func (rule *Rule) Loc() *Location { return rule.Location }

// Loc returns the location of the body's first expression, or nil for an
// empty body.
func (body Body) Loc() *Location {
	if len(body) == 0 {
		return nil
	}
	return body[0].Location
}

// NewBody returns a new Body containing the given expressions.
func NewBody(exprs ...*Expr) Body {
	return Body(exprs)
}

type (
	// Module represents a collection of policies (defined by rules)
	// within a namespace (defined by the package) and optional
	// dependencies on external documents (defined by imports).
	Module struct {
		Package     *Package
		Imports     []*Import
		Rules       []*Rule
		RegoVersion RegoVersion `json:"-"`
	}

	// Package represents the namespace of the documents produced
	// by rules inside the module.
	Package struct {
		Location *Location `json:"-"`
		Path     Ref
	}

	// Import represents a dependency on a document outside of the policy
	// namespace. Imports are optional.
	Import struct {
		Location *Location `json:"-"`
		Path     *Term
		Alias    Var `json:",omitempty"`
	}

	// Rule represents a rule as defined in the language. Rules define the
	// content of documents that represent policy decisions. A rule may have
	// multiple bodies (one per `else` clause chained through Else) and may
	// itself be a `default` rule that supplies the fallback value when every
	// other rule for the same name fails.
	Rule struct {
		Location *Location `json:"-"`
		Default  bool      `json:",omitempty"`
		Head     *Head
		Body     Body
		Else     *Rule `json:",omitempty"`

		// Module is a back-pointer to the enclosing module, set by
		// topdown.NewInterpreter when it loads the module. Not serialized.
		Module *Module `json:"-"`
	}

	// Head represents the part of a rule before the body - i.e., the part
	// that, when the rule fires, determines what is added to (or how it
	// contributes to) a document. spec.md §3 names five head shapes:
	// complete (Value set, Key/Args nil), partial set (Key set via Value
	// nil and the legacy `[key]` head, or the modern `contains` syntax),
	// partial object (Key and Value both set), function (Args non-nil),
	// and rule-body-only boolean rules (Value defaults to true).
	Head struct {
		Location *Location `json:"-"`
		Name     Var
		Args     []*Term `json:",omitempty"` // function rule parameters
		Key      *Term   `json:",omitempty"` // partial set/object key
		Value    *Term   `json:",omitempty"` // complete/partial-object value
	}

	// With represents a modifier that binds a document (or a built-in
	// function) to an expression for the duration of the expression's
	// evaluation.
	With struct {
		Location *Location `json:"-"`
		Target   *Term
		Value    *Term
	}

	// Body represents one or more expressions contained inside a rule.
	Body []*Expr

	// Expr represents a single statement inside the body of a rule: a plain
	// term, a built-in/function call, `some ...`, `every ...`, or a negated
	// form of any of those. With modifiers attach to the expression they
	// qualify.
	Expr struct {
		Location *Location `json:"-"`
		Index    int       `json:"-"` // position within the scheduled body, set by the parser/scheduler
		Negated  bool      `json:",omitempty"`
		Terms    interface{}
		With     []*With `json:",omitempty"`

		// Some/Every carry the extra structure `some x in xs` and
		// `every k, v in xs { body }` statements need beyond a plain Terms
		// call. For `some`/`every` statements the parser fills Some or Every
		// and also sets Terms to a `true` term.
		Some  *SomeDecl  `json:",omitempty"`
		Every *EveryDecl `json:",omitempty"`
	}

	// SomeDecl represents `some x`, `some x, y` or `some x, v in xs`.
	SomeDecl struct {
		Symbols []*Term
		// Key/Value/Domain populated for the `some x[, v] in xs` shape; nil
		// for bare `some x, y` declarations.
		Key    *Term
		Value  *Term
		Domain *Term
	}

	// EveryDecl represents `every [k,] v in xs { body }`.
	EveryDecl struct {
		Key    *Term
		Value  *Term
		Domain *Term
		Body   Body
	}
)

// RegoVersion selects which syntax generation a module parses under.
type RegoVersion int

const (
	// RegoV0 is the original Rego syntax (no `if`/`contains` required,
	// `import future.keywords` opts features in individually).
	RegoV0 RegoVersion = iota
	// RegoV0CompatV1 parses v0 syntax but enforces v1 safety checks.
	RegoV0CompatV1
	// RegoV1 is rego.v1/OPA 1.0 syntax: `if`/`contains` required on rule
	// heads with bodies, all future keywords always available.
	RegoV1
)

// Equal returns true if this Module equals the other Module.
// Two modules are equal if they contain the same package,
// ordered imports, and ordered rules.
func (mod *Module) Equal(other *Module) bool {
	if !mod.Package.Equal(other.Package) {
		return false
	}
	if len(mod.Imports) != len(other.Imports) {
		return false
	}
	for i := range mod.Imports {
		if !mod.Imports[i].Equal(other.Imports[i]) {
			return false
		}
	}
	if len(mod.Rules) != len(other.Rules) {
		return false
	}
	for i := range mod.Rules {
		if !mod.Rules[i].Equal(other.Rules[i]) {
			return false
		}
	}
	return true
}

func (mod *Module) String() string {
	buf := []string{mod.Package.String()}
	for _, imp := range mod.Imports {
		buf = append(buf, imp.String())
	}
	for _, rule := range mod.Rules {
		buf = append(buf, rule.String())
	}
	return strings.Join(buf, "\n")
}

// Equal returns true if this Package has the same path as the other Package.
func (pkg *Package) Equal(other *Package) bool {
	return pkg.Path.Equal(other.Path)
}

func (pkg *Package) String() string {
	return fmt.Sprintf("package %v", pkg.Path[1:])
}

// Equal returns true if this Import has the same path and alias as the other Import.
func (imp *Import) Equal(other *Import) bool {
	return imp.Alias.Equal(other.Alias) && imp.Path.Equal(other.Path)
}

func (imp *Import) String() string {
	buf := []string{"import", imp.Path.String()}
	if len(imp.Alias) > 0 {
		buf = append(buf, "as "+imp.Alias.String())
	}
	return strings.Join(buf, " ")
}

// Name returns the variable that the imported document will be bound to,
// either the alias or the last term of the path.
func (imp *Import) Name() Var {
	if len(imp.Alias) > 0 {
		return imp.Alias
	}
	switch v := imp.Path.Value.(type) {
	case Var:
		return v
	case Ref:
		if len(v) == 0 {
			return ""
		}
		if s, ok := v[len(v)-1].Value.(String); ok {
			return Var(s)
		}
		if head, ok := v[0].Value.(Var); ok {
			return head
		}
	}
	return ""
}

// RootDocumentNames contains the names of the top-level roots of the
// documents produced by and available to rules ("data" and "input").
var RootDocumentNames = NewSet(DefaultRootDocument, InputRootDocument)

// RootDocumentRefs contains the top-level roots as ref terms, used to check
// that rules and variables do not shadow them.
var RootDocumentRefs = NewSet(RefTerm(DefaultRootDocument), RefTerm(InputRootDocument))

// DocKind represents the collection of document types that can be produced by rules.
type DocKind int

const (
	// CompleteDoc represents a document that is completely defined by the rule.
	CompleteDoc DocKind = iota
	// PartialSetDoc represents a set document that is partially defined by the rule.
	PartialSetDoc
	// PartialObjectDoc represents an object document that is partially defined by the rule.
	PartialObjectDoc
	// FunctionDoc represents a function rule invoked with arguments rather
	// than referenced as a document.
	FunctionDoc
)

// DocKind returns the type of document produced by this rule's head.
func (head *Head) DocKind() DocKind {
	if head.Args != nil {
		return FunctionDoc
	}
	if head.Key != nil {
		if head.Value != nil {
			return PartialObjectDoc
		}
		return PartialSetDoc
	}
	return CompleteDoc
}

// DocKind returns the type of document produced by this rule.
func (rule *Rule) DocKind() DocKind {
	return rule.Head.DocKind()
}

// Ref returns a ref rooted at data referring to the rule's document.
func (rule *Rule) Ref() Ref {
	return DefaultRootDocumentRef().Append(StringTerm(string(rule.Head.Name)))
}

// DefaultRootDocumentRef returns a ref containing just the data root document.
func DefaultRootDocumentRef() Ref {
	return Ref{DefaultRootDocument}
}

// HeadVars returns map where keys represent all of the variables found in the
// head of the rule. The values of the map are ignored.
func (rule *Rule) HeadVars() VarSet {
	vis := &varVisitor{vars: VarSet{}}
	if rule.Head.Key != nil {
		Walk(vis, rule.Head.Key)
	}
	if rule.Head.Value != nil {
		Walk(vis, rule.Head.Value)
	}
	for _, a := range rule.Head.Args {
		Walk(vis, a)
	}
	return vis.vars
}

// Equal returns true if this Rule has the same head, body and else-chain as other.
func (rule *Rule) Equal(other *Rule) bool {
	if rule == nil || other == nil {
		return rule == other
	}
	if rule.Default != other.Default {
		return false
	}
	if !rule.Head.Equal(other.Head) {
		return false
	}
	if !rule.Body.Equal(other.Body) {
		return false
	}
	return rule.Else.Equal(other.Else)
}

func (rule *Rule) String() string {
	buf := []string{"rule"}
	if rule.Default {
		buf = []string{"default"}
	}
	buf = append(buf, rule.Head.String())
	if len(rule.Body) > 0 {
		buf = append(buf, "{", rule.Body.String(), "}")
	}
	s := strings.Join(buf, " ")
	if rule.Else != nil {
		s += "\nelse " + rule.Else.String()
	}
	return s
}

// Equal returns true if this Head is equal to the other Head.
func (head *Head) Equal(other *Head) bool {
	if head == nil || other == nil {
		return head == other
	}
	if !head.Name.Equal(other.Name) {
		return false
	}
	if !head.Key.Equal(other.Key) {
		return false
	}
	if !head.Value.Equal(other.Value) {
		return false
	}
	return termSliceEqual(head.Args, other.Args)
}

func (head *Head) String() string {
	switch head.DocKind() {
	case FunctionDoc:
		args := make([]string, len(head.Args))
		for i, a := range head.Args {
			args[i] = a.String()
		}
		s := fmt.Sprintf("%s(%s)", head.Name, strings.Join(args, ", "))
		if head.Value != nil {
			s += " = " + head.Value.String()
		}
		return s
	case PartialSetDoc:
		return fmt.Sprintf("%s contains %s", head.Name, head.Key)
	case PartialObjectDoc:
		return fmt.Sprintf("%s[%s] = %s", head.Name, head.Key, head.Value)
	default:
		if head.Value != nil {
			return fmt.Sprintf("%s = %s", head.Name, head.Value)
		}
		return head.Name.String()
	}
}

// Vars returns the variables referenced by the With target and value.
func (w *With) Vars() VarSet {
	vis := &varVisitor{vars: VarSet{}}
	Walk(vis, w.Target)
	Walk(vis, w.Value)
	return vis.vars
}

func (w *With) String() string {
	return fmt.Sprintf("with %s as %s", w.Target, w.Value)
}

// Equal returns true if w is equal to other.
func (w *With) Equal(other *With) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.Target.Equal(other.Target) && w.Value.Equal(other.Value)
}

// Contains returns true if this body contains the given expression.
func (body Body) Contains(x *Expr) bool {
	for _, e := range body {
		if e.Equal(x) {
			return true
		}
	}
	return false
}

// Equal returns true if this Body is equal to the other Body.
// Two bodies are equal if consist of equal, ordered expressions.
func (body Body) Equal(other Body) bool {
	if len(body) != len(other) {
		return false
	}
	for i := range body {
		if !body[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of body.
func (body Body) Copy() Body {
	cpy := make(Body, len(body))
	for i, e := range body {
		cpy[i] = e.Copy()
	}
	return cpy
}

// Hash returns the hash code for the Body.
func (body Body) Hash() int {
	s := 0
	for _, e := range body {
		s += e.Hash()
	}
	return s
}

// IsGround returns true if all of the expressions in the Body are ground.
func (body Body) IsGround() bool {
	for _, e := range body {
		if !e.IsGround() {
			return false
		}
	}
	return true
}

func (body Body) String() string {
	buf := make([]string, len(body))
	for i, v := range body {
		buf[i] = v.String()
	}
	return strings.Join(buf, "; ")
}

// Vars returns map where keys represent all of the variables found in the
// body. The values of the map are ignored.
func (body Body) Vars() VarSet {
	vis := &varVisitor{vars: VarSet{}}
	Walk(vis, body)
	return vis.vars
}

// Loc returns the expression's location.
func (expr *Expr) Loc() *Location { return expr.Location }

// Copy returns a deep copy of expr.
func (expr *Expr) Copy() *Expr {
	cpy := *expr
	switch t := expr.Terms.(type) {
	case *Term:
		cpy.Terms = t.Copy()
	case []*Term:
		ts := make([]*Term, len(t))
		for i := range t {
			ts[i] = t[i].Copy()
		}
		cpy.Terms = ts
	}
	if expr.With != nil {
		cpy.With = make([]*With, len(expr.With))
		for i, w := range expr.With {
			cpy.With[i] = &With{Location: w.Location, Target: w.Target.Copy(), Value: w.Value.Copy()}
		}
	}
	return &cpy
}

// Complement returns a copy of this expression with the negation flag flipped.
func (expr *Expr) Complement() *Expr {
	cpy := expr.Copy()
	cpy.Negated = !cpy.Negated
	return cpy
}

// Compare returns -1, 0 or 1 depending on whether expr is less than, equal
// to, or greater than other in an arbitrary but deterministic order (used to
// order SCC members and comprehension bodies).
func (expr *Expr) Compare(other *Expr) int {
	if expr.Negated != other.Negated {
		if !expr.Negated {
			return -1
		}
		return 1
	}
	at, aok := expr.Terms.(*Term)
	bt, bok := other.Terms.(*Term)
	if aok && bok {
		return Compare(at.Value, bt.Value)
	}
	as, asok := expr.Terms.([]*Term)
	bs, bsok := other.Terms.([]*Term)
	if asok && bsok {
		return compareTermSlices(as, bs)
	}
	if aok != bok {
		if aok {
			return -1
		}
		return 1
	}
	return 0
}

// Equal returns true if this Expr equals the other Expr.
// Two expressions are considered equal if both expressions are negated (or not),
// have the same `with` modifiers and have the same ordered terms.
func (expr *Expr) Equal(other *Expr) bool {
	if expr == nil || other == nil {
		return expr == other
	}
	if expr.Negated != other.Negated {
		return false
	}
	if len(expr.With) != len(other.With) {
		return false
	}
	for i := range expr.With {
		if !expr.With[i].Equal(other.With[i]) {
			return false
		}
	}
	switch t := expr.Terms.(type) {
	case *Term:
		u, ok := other.Terms.(*Term)
		return ok && t.Equal(u)
	case []*Term:
		u, ok := other.Terms.([]*Term)
		return ok && termSliceEqual(t, u)
	}
	return false
}

// Hash returns the hash code of the Expr.
func (expr *Expr) Hash() int {
	s := 0
	switch ts := expr.Terms.(type) {
	case []*Term:
		for _, t := range ts {
			s += t.Value.Hash()
		}
	case *Term:
		s += ts.Value.Hash()
	}
	if expr.Negated {
		s++
	}
	return s
}

// IsEquality returns true if this is an equality (`=` or `:=`) expression.
func (expr *Expr) IsEquality() bool {
	terms, ok := expr.Terms.([]*Term)
	if !ok || len(terms) != 3 {
		return false
	}
	v, ok := terms[0].Value.(Var)
	if !ok {
		return false
	}
	return v == Var("eq") || v == Var("assign")
}

// IsCall returns true if this expression represents a built-in/function call.
func (expr *Expr) IsCall() bool {
	_, ok := expr.Terms.([]*Term)
	return ok
}

// Operator returns the name of the built-in or function invoked by this
// expression, or the zero Ref if this is not a call.
func (expr *Expr) Operator() Ref {
	ts, ok := expr.Terms.([]*Term)
	if !ok || len(ts) == 0 {
		return nil
	}
	switch v := ts[0].Value.(type) {
	case Var:
		return Ref{{Value: v}}
	case Ref:
		return v
	}
	return nil
}

// Operands returns the arguments of a call expression (everything after the
// operator).
func (expr *Expr) Operands() []*Term {
	ts, ok := expr.Terms.([]*Term)
	if !ok || len(ts) == 0 {
		return nil
	}
	return ts[1:]
}

// IsAssignment returns true if this is a `:=` expression.
func (expr *Expr) IsAssignment() bool {
	terms, ok := expr.Terms.([]*Term)
	if !ok || len(terms) != 3 {
		return false
	}
	v, ok := terms[0].Value.(Var)
	return ok && v == Var("assign")
}

// Operand returns the i'th operand (argument after the operator) of a call
// expression, or nil if there is no such operand.
func (expr *Expr) Operand(i int) *Term {
	ops := expr.Operands()
	if i < 0 || i >= len(ops) {
		return nil
	}
	return ops[i]
}

// IsGround returns true if all of the expression terms are ground.
func (expr *Expr) IsGround() bool {
	switch ts := expr.Terms.(type) {
	case []*Term:
		for _, t := range ts[1:] {
			if !t.IsGround() {
				return false
			}
		}
	case *Term:
		return ts.IsGround()
	}
	return true
}

// OutputVars returns the set of variables that would be bound by
// evaluating this expression in isolation.
func (expr *Expr) OutputVars() VarSet {
	result := VarSet{}
	if expr.Negated {
		return result
	}

	vis := &varVisitor{
		skipRefHead:    true,
		skipObjectKeys: true,
		vars:           VarSet{},
	}

	switch ts := expr.Terms.(type) {
	case *Term:
		if r, ok := ts.Value.(Ref); ok {
			Walk(vis, r)
		}
	case []*Term:
		if v, ok := ts[0].Value.(Var); ok {
			if b, ok := BuiltinMap[v]; ok {
				for i, t := range ts[1:] {
					switch v := t.Value.(type) {
					case Object, Array:
						if b.UnifiesRecursively(i) {
							Walk(vis, v)
						}
					case Var:
						if b.Unifies(i) {
							result.Add(v)
						}
					case Ref:
						Walk(vis, v)
					}
				}
			}
		}
	}

	result.Update(vis.vars)
	return result
}

func (expr *Expr) String() string {
	var buf []string
	if expr.Negated {
		buf = append(buf, "not")
	}
	switch {
	case expr.Some != nil:
		buf = append(buf, expr.Some.String())
	case expr.Every != nil:
		buf = append(buf, expr.Every.String())
	default:
		switch t := expr.Terms.(type) {
		case []*Term:
			var b *Builtin
			if v, ok := t[0].Value.(Var); ok {
				b = BuiltinMap[v]
			}
			if b != nil && b.Infix != "" && len(t) == 3 {
				buf = append(buf, fmt.Sprintf("%s %s %s", t[1], b.Infix, t[2]))
			} else {
				var args []string
				for _, v := range t[1:] {
					args = append(args, v.String())
				}
				var name string
				if b != nil {
					name = b.GetPrintableName()
				} else {
					name = t[0].String()
				}
				buf = append(buf, fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")))
			}
		case *Term:
			buf = append(buf, t.String())
		}
	}
	for _, w := range expr.With {
		buf = append(buf, w.String())
	}
	return strings.Join(buf, " ")
}

// String returns a readable form of the some declaration.
func (s *SomeDecl) String() string {
	if s.Domain != nil {
		if s.Key != nil {
			return fmt.Sprintf("some %s, %s in %s", s.Key, s.Value, s.Domain)
		}
		return fmt.Sprintf("some %s in %s", s.Value, s.Domain)
	}
	names := make([]string, len(s.Symbols))
	for i, sym := range s.Symbols {
		names[i] = sym.String()
	}
	return "some " + strings.Join(names, ", ")
}

// String returns a readable form of the every declaration.
func (e *EveryDecl) String() string {
	var head string
	if e.Key != nil {
		head = fmt.Sprintf("every %s, %s in %s", e.Key, e.Value, e.Domain)
	} else {
		head = fmt.Sprintf("every %s in %s", e.Value, e.Domain)
	}
	return fmt.Sprintf("%s { %s }", head, e.Body)
}

// Vars returns a VarSet containing all of the variables in the expression.
func (expr *Expr) Vars() VarSet {
	vis := &varVisitor{vars: VarSet{}}
	Walk(vis, expr)
	return vis.vars
}

// NewBuiltinExpr creates a new Expr object with the supplied terms.
// The builtin operator must be the first term.
func NewBuiltinExpr(terms ...*Term) *Expr {
	return &Expr{Terms: terms}
}

type varVisitor struct {
	skipRefHead    bool
	skipObjectKeys bool
	vars           VarSet
}

func (vis *varVisitor) Visit(v interface{}) Visitor {
	if vis.skipObjectKeys {
		if o, ok := v.(Object); ok {
			for _, i := range o {
				Walk(vis, i[1])
			}
			return nil
		}
	}
	if vis.skipRefHead {
		if r, ok := v.(Ref); ok {
			for _, t := range r[1:] {
				Walk(vis, t)
			}
			return nil
		}
	}
	if c, ok := v.(Call); ok {
		// The operator (c[0]) names a function/built-in, not a variable
		// reference, even though it's represented as a Var/Ref term.
		for _, t := range c[1:] {
			Walk(vis, t)
		}
		return nil
	}
	if v, ok := v.(Var); ok {
		vis.vars.Add(v)
	}
	return vis
}
