// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

var varRegexp = regexp.MustCompile("^[[:alpha:]_][[:alpha:][:digit:]_]*$")

// Location records a position in source code
type Location struct {
	Text []byte `json:"-"` // The original text fragment from the source.
	File string // The name of the source file (which may be empty).
	Row  int    // The line in the source.
	Col  int    // The column in the row.
}

// NewLocation returns a new Location object.
func NewLocation(text []byte, file string, row int, col int) *Location {
	return &Location{Text: text, File: file, Row: row, Col: col}
}

// Errorf returns a new error value with a message formatted to include the location
// info (e.g., line, column, filename, etc.)
func (loc *Location) Errorf(f string, a ...interface{}) error {
	return errors.New(loc.Format(f, a...))
}

// Wrapf returns a new error value that wraps an existing error with a message formatted
// to include the location info (e.g., line, column, filename, etc.)
func (loc *Location) Wrapf(err error, f string, a ...interface{}) error {
	return errors.Wrap(err, loc.Format(f, a...))
}

// Format returns a formatted string prefixed with the location information.
func (loc *Location) Format(f string, a ...interface{}) string {
	if loc == nil {
		return fmt.Sprintf(f, a...)
	}
	if len(loc.File) > 0 {
		f = fmt.Sprintf("%v:%v: %v", loc.File, loc.Row, f)
	} else {
		f = fmt.Sprintf("%v:%v: %v", loc.Row, loc.Col, f)
	}
	return fmt.Sprintf(f, a...)
}

func (loc *Location) String() string {
	if loc == nil {
		return "<unknown>"
	}
	if len(loc.File) > 0 {
		return fmt.Sprintf("%s:%d", loc.File, loc.Row)
	}
	return fmt.Sprintf("%d:%d", loc.Row, loc.Col)
}

// Value declares the common interface for all Term values. Every kind of Term value
// in the language is represented as a type that implements this interface:
//
// - Null, Boolean, Number, String, Undefined
// - Object, Array, Set
// - Variables, References
// - Array/Set/Object comprehensions
type Value interface {
	// Equal returns true if this value equals the other value.
	Equal(other Value) bool

	// IsGround returns true if this value is not a variable or contains no variables.
	IsGround() bool

	// String returns a human readable string representation of the value.
	String() string

	// Hash returns the hash code of the value.
	Hash() int
}

// InterfaceToValue converts a native Go value x to a Value.
func InterfaceToValue(x interface{}) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Boolean(x), nil
	case float64:
		return FloatNumber(x), nil
	case int:
		return IntNumber(int64(x)), nil
	case int64:
		return IntNumber(x), nil
	case json.Number:
		return Number(x), nil
	case string:
		return String(x), nil
	case []interface{}:
		r := make(Array, 0, len(x))
		for _, e := range x {
			v, err := InterfaceToValue(e)
			if err != nil {
				return nil, err
			}
			r = append(r, &Term{Value: v})
		}
		return r, nil
	case map[string]interface{}:
		r := make(Object, 0, len(x))
		for k, v := range x {
			kv, err := InterfaceToValue(k)
			if err != nil {
				return nil, err
			}
			vv, err := InterfaceToValue(v)
			if err != nil {
				return nil, err
			}
			r = append(r, Item(&Term{Value: kv}, &Term{Value: vv}))
		}
		return r, nil
	default:
		return nil, fmt.Errorf("illegal value: %v", x)
	}
}

// Term is an argument to a function, rule head or expression.
type Term struct {
	Value    Value     // the value of the Term as represented in Go
	Location *Location `json:"-"` // the location of the Term in the source
}

// NewTerm returns a new Term object.
func NewTerm(v Value) *Term {
	return &Term{
		Value: v,
	}
}

// SetLocation sets the term's location and returns the term.
func (term *Term) SetLocation(loc *Location) *Term {
	term.Location = loc
	return term
}

// Equal returns true if this term equals the other term. Equality is
// defined for each kind of term.
func (term *Term) Equal(other *Term) bool {
	if term == nil && other != nil {
		return false
	}
	if term != nil && other == nil {
		return false
	}
	if term == other {
		return true
	}
	return term.Value.Equal(other.Value)
}

// Hash returns the hash code of the Term's value.
func (term *Term) Hash() int {
	return term.Value.Hash()
}

// IsGround returns true if this terms' Value is ground.
func (term *Term) IsGround() bool {
	return term.Value.IsGround()
}

// Copy returns a deep copy of term.
func (term *Term) Copy() *Term {
	if term == nil {
		return nil
	}
	cpy := *term
	cpy.Value = term.Value.(interface{ copyValue() Value }).copyValue()
	return &cpy
}

// MarshalJSON returns the JSON encoding of the term.
// Specialized marshalling logic is required to include a type hint
// for Value.
func (term *Term) MarshalJSON() ([]byte, error) {
	var typ string
	switch term.Value.(type) {
	case Null:
		typ = "null"
	case Boolean:
		typ = "boolean"
	case Number:
		typ = "number"
	case String:
		typ = "string"
	case Ref:
		typ = "ref"
	case Var:
		typ = "var"
	case Array:
		typ = "array"
	case Object:
		typ = "object"
	case *Set:
		typ = "set"
	case *ArrayComprehension:
		typ = "array-comprehension"
	case *SetComprehension:
		typ = "set-comprehension"
	case *ObjectComprehension:
		typ = "object-comprehension"
	case Undefined:
		typ = "undefined"
	case Call:
		typ = "call"
	}
	d := map[string]interface{}{
		"Type":  typ,
		"Value": term.Value,
	}
	return json.Marshal(d)
}

func (term *Term) String() string {
	return term.Value.String()
}

// Vars returns a VarSet with variables contained in this term.
func (term *Term) Vars() VarSet {
	vis := &varVisitor{vars: VarSet{}}
	Walk(vis, term)
	return vis.vars
}

// IsScalar returns true if the AST value is a scalar (Null, Boolean, Number or String).
func IsScalar(v Value) bool {
	switch v.(type) {
	case String, Number, Boolean, Null:
		return true
	}
	return false
}

// Null represents the null value defined by JSON.
type Null struct{}

// NullTerm creates a new Term with a Null value.
func NullTerm() *Term {
	return &Term{Value: Null{}}
}

func (null Null) Equal(other Value) bool {
	_, ok := other.(Null)
	return ok
}

func (null Null) Hash() int { return 0 }

func (null Null) IsGround() bool { return true }

func (null Null) String() string { return "null" }

func (null Null) copyValue() Value { return null }

// Undefined represents the absence of a value. It is distinct from Null:
// evaluating a reference or comprehension that has no solutions produces
// Undefined, whereas the JSON literal `null` produces Null.
type Undefined struct{}

// UndefinedTerm creates a new Term carrying the Undefined value.
func UndefinedTerm() *Term {
	return &Term{Value: Undefined{}}
}

func (u Undefined) Equal(other Value) bool {
	_, ok := other.(Undefined)
	return ok
}

func (u Undefined) Hash() int { return 1 }

func (u Undefined) IsGround() bool { return true }

func (u Undefined) String() string { return "undefined" }

func (u Undefined) copyValue() Value { return u }

// Boolean represents a boolean value defined by JSON.
type Boolean bool

// BooleanTerm creates a new Term with a Boolean value.
func BooleanTerm(b bool) *Term {
	return &Term{Value: Boolean(b)}
}

func (bol Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && bol == o
}

func (bol Boolean) Hash() int {
	if bol {
		return 1
	}
	return 0
}

func (bol Boolean) IsGround() bool { return true }

func (bol Boolean) String() string { return strconv.FormatBool(bool(bol)) }

func (bol Boolean) copyValue() Value { return bol }

// Number represents an arbitrary precision numeric value. It is backed by
// json.Number (a decimal string) rather than float64 so that integers wider
// than 2^53 and decimals beyond float64 precision round-trip exactly.
type Number json.Number

// IntNumber returns a new Number representing i.
func IntNumber(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// FloatNumber returns a new Number representing f.
func FloatNumber(f float64) Number {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// NumberTerm creates a new Term with a Number value built from a float64.
func NumberTerm(n float64) *Term {
	return &Term{Value: FloatNumber(n)}
}

// IntNumberTerm creates a new Term with a Number value built from an int64.
func IntNumberTerm(i int64) *Term {
	return &Term{Value: IntNumber(i)}
}

// Int64 returns the int64 value and true if num is exactly representable as
// an int64 (the fast path most arithmetic built-ins take).
func (num Number) Int64() (int64, bool) {
	i, err := strconv.ParseInt(string(num), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Float64 returns the float64 approximation of num.
func (num Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(num), 64)
}

// BigFloat returns an arbitrary precision representation of num.
func (num Number) BigFloat() *big.Float {
	f, ok := new(big.Float).SetPrec(512).SetString(string(num))
	if !ok {
		return big.NewFloat(0)
	}
	return f
}

func (num Number) Equal(other Value) bool {
	o, ok := other.(Number)
	if !ok {
		return false
	}
	return num.BigFloat().Cmp(o.BigFloat()) == 0
}

func (num Number) Hash() int {
	return int(xxhash.Sum64String(num.BigFloat().Text('g', -1)))
}

func (num Number) IsGround() bool { return true }

func (num Number) String() string { return string(num) }

func (num Number) copyValue() Value { return num }

// String represents a string value as defined by JSON.
type String string

// StringTerm creates a new Term with a String value.
func StringTerm(s string) *Term {
	return &Term{Value: String(s)}
}

func (str String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && str == o
}

func (str String) IsGround() bool { return true }

func (str String) String() string { return strconv.Quote(string(str)) }

func (str String) Hash() int {
	return int(xxhash.Sum64String(string(str)))
}

func (str String) copyValue() Value { return str }

// Var represents a variable as defined by the language.
type Var string

// VarTerm creates a new Term with a Variable value.
func VarTerm(v string) *Term {
	return &Term{Value: Var(v)}
}

func (v Var) Equal(other Value) bool {
	o, ok := other.(Var)
	return ok && v == o
}

func (v Var) Hash() int {
	return int(xxhash.Sum64String(string(v)))
}

func (v Var) IsGround() bool { return false }

// IsWildcard returns true if this is a wildcard variable.
func (v Var) IsWildcard() bool {
	return strings.HasPrefix(string(v), WildcardPrefix)
}

func (v Var) String() string {
	// Special case for wildcard so that string representation is parseable. The
	// parser mangles wildcard variables to make their names unique and uses an
	// illegal variable name character (WildcardPrefix) to avoid conflicts. When
	// we serialize the variable here, we need to make sure it's parseable.
	if v.IsWildcard() {
		return Wildcard.String()
	}
	return string(v)
}

func (v Var) copyValue() Value { return v }

// Ref represents a reference as defined by the language.
type Ref []*Term

// EmptyRef returns a new, empty reference.
func EmptyRef() Ref {
	return Ref([]*Term{})
}

// RefTerm creates a new Term with a Ref value.
func RefTerm(r ...*Term) *Term {
	return &Term{Value: Ref(r)}
}

// Append returns a copy of ref with the term appended to the end.
func (ref Ref) Append(term *Term) Ref {
	n := len(ref)
	dst := make(Ref, n+1)
	copy(dst, ref)
	dst[n] = term
	return dst
}

func (ref Ref) Equal(other Value) bool {
	return Compare(ref, other) == 0
}

func (ref Ref) Hash() int {
	return termSliceHash(ref)
}

// HasPrefix returns true if the other ref is a prefix of this ref.
func (ref Ref) HasPrefix(other Ref) bool {
	if len(other) > len(ref) {
		return false
	}
	for i := range other {
		if !ref[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// GroundPrefix returns the ground portion of the ref starting from the head. By
// definition, the head of the reference is always ground.
func (ref Ref) GroundPrefix() Ref {
	prefix := make(Ref, 0, len(ref))
	for i, x := range ref {
		if i > 0 && !x.IsGround() {
			break
		}
		prefix = append(prefix, x)
	}
	return prefix
}

func (ref Ref) IsGround() bool {
	if len(ref) == 0 {
		return true
	}
	return termSliceIsGround(ref[1:])
}

// IsNested returns true if this ref contains other Refs.
func (ref Ref) IsNested() bool {
	for _, x := range ref {
		if _, ok := x.Value.(Ref); ok {
			return true
		}
	}
	return false
}

func (ref Ref) String() string {
	if len(ref) == 0 {
		return ""
	}
	var buf []string
	path := ref
	if v, ok := ref[0].Value.(Var); ok {
		buf = append(buf, string(v))
		path = path[1:]
	}
	for _, p := range path {
		switch p := p.Value.(type) {
		case String:
			str := string(p)
			if varRegexp.MatchString(str) && len(buf) > 0 {
				buf = append(buf, "."+str)
			} else {
				buf = append(buf, "["+p.String()+"]")
			}
		default:
			buf = append(buf, "["+p.String()+"]")
		}
	}
	return strings.Join(buf, "")
}

func (ref Ref) copyValue() Value {
	cpy := make(Ref, len(ref))
	for i := range ref {
		cpy[i] = ref[i].Copy()
	}
	return cpy
}

// OutputVars returns a VarSet containing variables that would be bound by evaluating
// this reference in isolation.
func (ref Ref) OutputVars() VarSet {
	vis := &varVisitor{
		vars:        VarSet{},
		skipRefHead: true,
	}
	Walk(vis, ref)
	return vis.vars
}

// QueryIterator defines the interface for querying AST documents with references.
type QueryIterator func(map[Var]Value, Value) error

// Call represents a function/built-in invocation appearing as a term rather
// than as a whole expression, e.g. the nested `count(x)` in `y := count(x) + 1`.
// The first element is the operator (Var or Ref), the rest are arguments.
// Calls stay in the tree as written: topdown evaluates them in place and
// the vm compiler lowers them to instructions.
type Call []*Term

// CallTerm returns a new Term with a Call value built from operator and args.
func CallTerm(operator *Term, args ...*Term) *Term {
	return &Term{Value: append(Call{operator}, args...)}
}

func (c Call) Equal(other Value) bool {
	return Compare(c, other) == 0
}

func (c Call) Hash() int {
	return termSliceHash([]*Term(c))
}

func (c Call) IsGround() bool {
	// The operator (c[0]) names the function being invoked, not a value
	// subject to groundness, same treatment as a Ref's head.
	if len(c) == 0 {
		return true
	}
	return termSliceIsGround(c[1:])
}

func (c Call) String() string {
	if len(c) == 0 {
		return "call()"
	}
	if v, ok := c[0].Value.(Var); ok {
		if b, ok := BuiltinMap[v]; ok && b.Infix != "" && len(c) == 3 {
			return fmt.Sprintf("%s %s %s", c[1], b.Infix, c[2])
		}
	}
	args := make([]string, len(c)-1)
	for i, t := range c[1:] {
		args[i] = t.String()
	}
	return fmt.Sprintf("%v(%s)", c[0], strings.Join(args, ", "))
}

func (c Call) copyValue() Value {
	cpy := make(Call, len(c))
	for i := range c {
		cpy[i] = c[i].Copy()
	}
	return cpy
}

// Array represents an array as defined by the language. Arrays are similar to the
// same types as defined by JSON with the exception that they can contain Vars
// and References.
type Array []*Term

// ArrayTerm creates a new Term with an Array value.
func ArrayTerm(a ...*Term) *Term {
	return &Term{Value: Array(a)}
}

func (arr Array) Equal(other Value) bool {
	return Compare(arr, other) == 0
}

func (arr Array) Hash() int {
	return termSliceHash(arr)
}

func (arr Array) IsGround() bool {
	return termSliceIsGround(arr)
}

func (arr Array) String() string {
	buf := make([]string, len(arr))
	for i, e := range arr {
		buf[i] = e.String()
	}
	return "[" + strings.Join(buf, ", ") + "]"
}

func (arr Array) copyValue() Value {
	cpy := make(Array, len(arr))
	for i := range arr {
		cpy[i] = arr[i].Copy()
	}
	return cpy
}

// Set represents a set as defined by the language.
type Set []*Term

// SetTerm returns a new Term representing a set containing terms t.
func SetTerm(t ...*Term) *Term {
	s := &Set{}
	for i := range t {
		s.Add(t[i])
	}
	return &Term{Value: s}
}

// NewSet returns a new Set containing terms t.
func NewSet(t ...*Term) *Set {
	s := &Set{}
	for i := range t {
		s.Add(t[i])
	}
	return s
}

func (s *Set) IsGround() bool {
	return termSliceIsGround(*s)
}

func (s *Set) Hash() int {
	return termSliceHash(*s)
}

func (s *Set) String() string {
	sl := *s
	if len(sl) == 0 {
		return "set()"
	}
	buf := make([]string, len(sl))
	for i := range sl {
		buf[i] = sl[i].String()
	}
	return "{" + strings.Join(buf, ", ") + "}"
}

func (s *Set) Equal(v Value) bool {
	return Compare(s, v) == 0
}

// Diff returns elements in s that are not in other.
func (s *Set) Diff(other *Set) *Set {
	r := &Set{}
	for _, x := range *s {
		if !other.Contains(x) {
			r.Add(x)
		}
	}
	return r
}

// Union returns the union of s and other.
func (s *Set) Union(other *Set) *Set {
	r := &Set{}
	for _, x := range *s {
		r.Add(x)
	}
	for _, x := range *other {
		r.Add(x)
	}
	return r
}

// Intersect returns the intersection of s and other.
func (s *Set) Intersect(other *Set) *Set {
	r := &Set{}
	for _, x := range *s {
		if other.Contains(x) {
			r.Add(x)
		}
	}
	return r
}

// Len returns the number of elements in s.
func (s *Set) Len() int { return len(*s) }

// Slice returns the elements of s as a slice of terms, in insertion order.
func (s *Set) Slice() []*Term {
	return []*Term(*s)
}

// Add updates s to include t.
func (s *Set) Add(t *Term) {
	if s.Contains(t) {
		return
	}
	*s = append(*s, t)
}

// Map returns a new Set obtained by applying f to each value in s.
func (s *Set) Map(f func(*Term) (*Term, error)) (*Set, error) {
	sl := *s
	set := &Set{}
	for i := range sl {
		term, err := f(sl[i])
		if err != nil {
			return nil, err
		}
		set.Add(term)
	}
	return set, nil
}

// Foreach invokes f for each element of s, in insertion order.
func (s *Set) Foreach(f func(*Term)) {
	for _, t := range *s {
		f(t)
	}
}

// Contains returns true if t is in s.
func (s Set) Contains(t *Term) bool {
	for i := range s {
		if s[i].Equal(t) {
			return true
		}
	}
	return false
}

func (s *Set) copyValue() Value {
	cpy := &Set{}
	for _, t := range *s {
		cpy.Add(t.Copy())
	}
	return cpy
}

// Object represents an object as defined by the language. Objects are similar to
// the same types as defined by JSON with the exception that they can contain
// Vars and References.
type Object [][2]*Term

// Item is a helper for constructing a tuple containing two Terms
// representing a key/value pair in an Object.
func Item(key, value *Term) [2]*Term {
	return [2]*Term{key, value}
}

// NewObject returns a new Object built from the given key/value pairs.
func NewObject(pairs ...[2]*Term) Object {
	return Object(pairs)
}

func (obj Object) Equal(other Value) bool {
	return Compare(obj, other) == 0
}

// Get returns the value of k in obj if k exists, otherwise nil.
func (obj Object) Get(k *Term) *Term {
	for _, pair := range obj {
		if pair[0].Equal(k) {
			return pair[1]
		}
	}
	return nil
}

func (obj Object) Hash() int {
	var hash int
	for i := range obj {
		hash += obj[i][0].Value.Hash()
		hash += obj[i][1].Value.Hash()
	}
	return hash
}

func (obj Object) IsGround() bool {
	for i := range obj {
		if !obj[i][0].IsGround() || !obj[i][1].IsGround() {
			return false
		}
	}
	return true
}

// ObjectTerm creates a new Term with an Object value.
func ObjectTerm(o ...[2]*Term) *Term {
	return &Term{Value: Object(o)}
}

// Diff returns a new Object that contains only the key/value pairs that exist in obj.
func (obj Object) Diff(other Object) Object {
	r := Object{}
	for _, i := range obj {
		found := false
		for _, j := range other {
			if j[0].Equal(i[0]) {
				found = true
				break
			}
		}
		if !found {
			r = append(r, i)
		}
	}
	return r
}

// Intersect returns a slice of term triplets that represent the intersection of keys
// between obj and other. For each intersecting key, the values from obj and other are included
// as the last two terms in the triplet (respectively).
func (obj Object) Intersect(other Object) [][3]*Term {
	r := [][3]*Term{}
	for _, i := range obj {
		for _, j := range other {
			if i[0].Equal(j[0]) {
				r = append(r, [3]*Term{{Value: i[0].Value}, i[1], j[1]})
			}
		}
	}
	return r
}

// Keys returns the keys of obj.
func (obj Object) Keys() []*Term {
	keys := make([]*Term, len(obj))
	for i, pair := range obj {
		keys[i] = pair[0]
	}
	return keys
}

// Merge returns a new Object containing the non-overlapping keys of obj and other. If there are
// overlapping keys between obj and other, the values associated with the keys are merged
// recursively. Only objects can be merged with other objects; if the values cannot be merged,
// the second return value is false.
func (obj Object) Merge(other Object) (Object, bool) {
	r := Object{}
	r = append(r, obj.Diff(other)...)
	r = append(r, other.Diff(obj)...)
	for _, vs := range obj.Intersect(other) {
		var merged Value
		if v1, ok := vs[1].Value.(Object); ok {
			if v2, ok := vs[2].Value.(Object); ok {
				m, ok := v1.Merge(v2)
				if !ok {
					return nil, false
				}
				merged = m
			}
		}
		if merged == nil {
			return nil, false
		}
		r = append(r, [2]*Term{vs[0], {Value: merged}})
	}
	return r, true
}

func (obj Object) String() string {
	buf := make([]string, len(obj))
	for i, p := range obj {
		buf[i] = fmt.Sprintf("%s: %s", p[0], p[1])
	}
	return "{" + strings.Join(buf, ", ") + "}"
}

func (obj Object) copyValue() Value {
	cpy := make(Object, len(obj))
	for i, p := range obj {
		cpy[i] = [2]*Term{p[0].Copy(), p[1].Copy()}
	}
	return cpy
}

// ArrayComprehension represents an array comprehension as defined in the language.
type ArrayComprehension struct {
	Term *Term
	Body Body
}

// ArrayComprehensionTerm creates a new Term with an ArrayComprehension value.
func ArrayComprehensionTerm(term *Term, body Body) *Term {
	return &Term{Value: &ArrayComprehension{Term: term, Body: body}}
}

func (ac *ArrayComprehension) Equal(other Value) bool {
	return Compare(ac, other) == 0
}

func (ac *ArrayComprehension) Hash() int {
	return ac.Term.Hash() + ac.Body.Hash()
}

func (ac *ArrayComprehension) IsGround() bool {
	return ac.Term.IsGround() && ac.Body.IsGround()
}

func (ac *ArrayComprehension) String() string {
	return "[" + ac.Term.String() + " | " + ac.Body.String() + "]"
}

func (ac *ArrayComprehension) copyValue() Value {
	return &ArrayComprehension{Term: ac.Term.Copy(), Body: ac.Body.Copy()}
}

// SetComprehension represents a set comprehension as defined in the language.
type SetComprehension struct {
	Term *Term
	Body Body
}

// SetComprehensionTerm creates a new Term with a SetComprehension value.
func SetComprehensionTerm(term *Term, body Body) *Term {
	return &Term{Value: &SetComprehension{Term: term, Body: body}}
}

func (sc *SetComprehension) Equal(other Value) bool {
	return Compare(sc, other) == 0
}

func (sc *SetComprehension) Hash() int {
	return sc.Term.Hash() + sc.Body.Hash()
}

func (sc *SetComprehension) IsGround() bool {
	return sc.Term.IsGround() && sc.Body.IsGround()
}

func (sc *SetComprehension) String() string {
	return "{" + sc.Term.String() + " | " + sc.Body.String() + "}"
}

func (sc *SetComprehension) copyValue() Value {
	return &SetComprehension{Term: sc.Term.Copy(), Body: sc.Body.Copy()}
}

// ObjectComprehension represents an object comprehension as defined in the language.
type ObjectComprehension struct {
	Key   *Term
	Value *Term
	Body  Body
}

// ObjectComprehensionTerm creates a new Term with an ObjectComprehension value.
func ObjectComprehensionTerm(key, value *Term, body Body) *Term {
	return &Term{Value: &ObjectComprehension{Key: key, Value: value, Body: body}}
}

func (oc *ObjectComprehension) Equal(other Value) bool {
	return Compare(oc, other) == 0
}

func (oc *ObjectComprehension) Hash() int {
	return oc.Key.Hash() + oc.Value.Hash() + oc.Body.Hash()
}

func (oc *ObjectComprehension) IsGround() bool {
	return oc.Key.IsGround() && oc.Value.IsGround() && oc.Body.IsGround()
}

func (oc *ObjectComprehension) String() string {
	return "{" + oc.Key.String() + ": " + oc.Value.String() + " | " + oc.Body.String() + "}"
}

func (oc *ObjectComprehension) copyValue() Value {
	return &ObjectComprehension{Key: oc.Key.Copy(), Value: oc.Value.Copy(), Body: oc.Body.Copy()}
}

func termSliceEqual(a, b []*Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func termSliceHash(a []*Term) int {
	var hash int
	for _, v := range a {
		hash += v.Value.Hash()
	}
	return hash
}

func termSliceIsGround(a []*Term) bool {
	for _, v := range a {
		if !v.IsGround() {
			return false
		}
	}
	return true
}
