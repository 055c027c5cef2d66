// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import "strings"

// Builtin represents a built-in function's signature: name, arity, and
// which argument positions are "target" positions a caller may pass an
// unbound variable for (the built-in then unifies the result into that
// variable, the way `split(s, d, r)` binds `r`).
type Builtin struct {
	Name        Var
	Infix       string // non-empty for operators with infix notation ("=", "+", ...)
	NumArgs     int
	TargetPos   []int
	Strict      bool // strict built-ins raise an error rather than yielding Undefined on a bad argument
	Description string
	Deprecated  bool
}

// IsDeprecated returns true if calls to this built-in should be rejected
// under the current Rego version's strict checks.
func (b *Builtin) IsDeprecated() bool {
	return b.Deprecated
}

// GetPrintableName returns the infix operator spelling if one exists,
// otherwise the fully qualified built-in name.
func (b *Builtin) GetPrintableName() string {
	if b.Infix != "" {
		return b.Infix
	}
	return string(b.Name)
}

// Unifies returns true if the built-in allows a free variable in argument
// position i to be bound by the call (rather than requiring it pre-bound).
func (b *Builtin) Unifies(i int) bool {
	for _, p := range b.TargetPos {
		if p == i {
			return true
		}
	}
	return false
}

// UnifiesRecursively returns true if the built-in allows free variables
// nested inside an Object/Array argument at position i to be bound.
func (b *Builtin) UnifiesRecursively(i int) bool {
	return b.Unifies(i)
}

func bi(name string, numArgs int, targets ...int) *Builtin {
	return &Builtin{Name: Var(name), NumArgs: numArgs, TargetPos: targets}
}

func infixBi(name, infix string, numArgs int, targets ...int) *Builtin {
	return &Builtin{Name: Var(name), Infix: infix, NumArgs: numArgs, TargetPos: targets}
}

var (
	// Equality is the unification operator "=".
	Equality = infixBi("eq", "=", 2, 0, 1)
	// Assign is the local-assignment operator ":=". It differs from "="
	// in that it only ever binds (never unifies two bound terms).
	Assign = infixBi("assign", ":=", 2, 0)

	// Comparisons never bind; every argument must already be ground.
	Equal              = infixBi("equal", "==", 2)
	NotEqual           = infixBi("neq", "!=", 2)
	GreaterThan        = infixBi("gt", ">", 2)
	GreaterThanEq      = infixBi("gte", ">=", 2)
	LessThan           = infixBi("lt", "<", 2)
	LessThanEq         = infixBi("lte", "<=", 2)

	// Arithmetic binds its third (result) argument.
	Plus     = infixBi("plus", "+", 3, 2)
	Minus    = infixBi("minus", "-", 3, 2)
	Multiply = infixBi("mul", "*", 3, 2)
	Divide   = infixBi("div", "/", 3, 2)
	Rem      = infixBi("rem", "%", 3, 2)
	Round    = bi("round", 2, 1)
	Ceil     = bi("ceil", 2, 1)
	Floor    = bi("floor", 2, 1)
	Abs      = bi("abs", 2, 1)

	// Aggregates.
	Count = bi("count", 2, 1)
	Sum   = bi("sum", 2, 1)
	Max   = bi("max", 2, 1)
	Min   = bi("min", 2, 1)
	Sort  = bi("sort", 2, 1)
	All   = bi("all", 2, 1)
	Any   = bi("any", 2, 1)

	// Sets.
	SetDiff        = bi("set_diff", 3, 2)
	Intersection   = bi("intersection", 2, 1)
	Union          = bi("union", 2, 1)

	// Strings.
	Concat        = bi("concat", 3, 2)
	FormatInt     = bi("format_int", 3, 2)
	IndexOf       = bi("indexof", 3, 2)
	Substring     = bi("substring", 4, 3)
	Contains      = bi("contains", 2)
	StartsWith    = bi("startswith", 2)
	EndsWith      = bi("endswith", 2)
	Lower         = bi("lower", 2, 1)
	Upper         = bi("upper", 2, 1)
	Split         = bi("split", 3, 2)
	Replace       = bi("replace", 4, 3)
	Trim          = bi("trim", 3, 2)
	TrimLeft      = bi("trim_left", 3, 2)
	TrimRight     = bi("trim_right", 3, 2)
	TrimSpace     = bi("trim_space", 2, 1)
	Sprintf       = bi("sprintf", 3, 2)
	ReverseString = bi("strings.reverse", 2, 1)

	// Casts (always bind their output).
	ToNumber = bi("to_number", 2, 1)
	CastArray = bi("cast_array", 2, 1)

	// Types.
	IsNumber  = bi("is_number", 1)
	IsString  = bi("is_string", 1)
	IsBoolean = bi("is_boolean", 1)
	IsArray   = bi("is_array", 1)
	IsSet     = bi("is_set", 1)
	IsObject  = bi("is_object", 1)
	IsNull    = bi("is_null", 1)
	TypeNameBuiltin = bi("type_name", 2, 1)

	// Objects.
	ObjectGet    = bi("object.get", 4, 3)
	ObjectUnion  = bi("object.union", 3, 2)
	ObjectRemove = bi("object.remove", 3, 2)
	ObjectFilter = bi("object.filter", 3, 2)
	JSONMarshal   = bi("json.marshal", 2, 1)
	JSONUnmarshal = bi("json.unmarshal", 2, 1)

	// base64 group.
	Base64Encode = bi("base64.encode", 2, 1)
	Base64Decode = bi("base64.decode", 2, 1)

	// glob group (gobwas/glob).
	GlobMatch   = bi("glob.match", 4, 3)
	GlobQuoteMeta = bi("glob.quote_meta", 2, 1)

	// regex group.
	RegexMatch = bi("regex.match", 3, 2)

	// time group.
	TimeNow      = bi("time.now_ns", 1, 0)
	TimeParseRFC = bi("time.parse_rfc3339_ns", 2, 1)
	TimeDate     = bi("time.date", 2, 1)
	TimeAddDate  = bi("time.add_date", 5, 4)

	// uuid group (google/uuid).
	UUIDRFC4122 = bi("uuid.rfc4122", 2, 1)
	UUIDParse   = bi("uuid.parse", 2, 1)

	// crypto group.
	CryptoSha256 = bi("crypto.sha256", 2, 1)
	CryptoMd5    = bi("crypto.md5", 2, 1)

	// semver group.
	SemverCompare  = bi("semver.compare", 3, 2)
	SemverIsValid  = bi("semver.is_valid", 1)

	// urlquery group.
	URLQueryEncode = bi("urlquery.encode", 2, 1)
	URLQueryDecode = bi("urlquery.decode", 2, 1)

	// jsonschema group.
	JSONSchemaVerify = bi("json.schema.verify", 3, 2)

	// jwt group (lestrrat-go/jwx/v3).
	JWTDecode       = bi("io.jwt.decode", 2, 1)
	JWTVerifyHS256  = bi("io.jwt.verify_hs256", 2)
	JWTVerifyRS256  = bi("io.jwt.verify_rs256", 2)

	// http group (explicit leaf gap: no network access in this evaluator).
	HTTPSend = bi("http.send", 2, 1)

	// Other.
	And   = infixBi("and", "&", 3, 2)
	Or    = infixBi("or", "|", 3, 2)
	In    = infixBi("internal.member_2", "in", 2)
	Print = bi("internal.print", 0) // variadic: NumArgs is not arity-checked
)

// Builtins is the registry of built-in functions the engine supports.
var Builtins = [...]*Builtin{
	Equality, Assign,
	Equal, NotEqual, GreaterThan, GreaterThanEq, LessThan, LessThanEq,
	Plus, Minus, Multiply, Divide, Rem, Round, Ceil, Floor, Abs,
	Count, Sum, Max, Min, Sort, All, Any,
	SetDiff, Intersection, Union,
	Concat, FormatInt, IndexOf, Substring, Contains, StartsWith, EndsWith,
	Lower, Upper, Split, Replace, Trim, TrimLeft, TrimRight, TrimSpace,
	Sprintf, ReverseString,
	ToNumber, CastArray,
	IsNumber, IsString, IsBoolean, IsArray, IsSet, IsObject, IsNull, TypeNameBuiltin,
	ObjectGet, ObjectUnion, ObjectRemove, ObjectFilter, JSONMarshal, JSONUnmarshal,
	Base64Encode, Base64Decode,
	GlobMatch, GlobQuoteMeta,
	RegexMatch,
	TimeNow, TimeParseRFC, TimeDate, TimeAddDate,
	UUIDRFC4122, UUIDParse,
	CryptoSha256, CryptoMd5,
	SemverCompare, SemverIsValid,
	URLQueryEncode, URLQueryDecode,
	JSONSchemaVerify,
	JWTDecode, JWTVerifyHS256, JWTVerifyRS256,
	HTTPSend,
	And, Or, In, Print,
}

// BuiltinMap provides a convenient mapping of built-in names to
// built-in definitions.
var BuiltinMap map[Var]*Builtin

func init() {
	BuiltinMap = map[Var]*Builtin{}
	for _, b := range Builtins {
		BuiltinMap[b.Name] = b
	}
}

// BuiltinGroup returns the feature-group prefix of a dotted built-in name
// (e.g. "glob.match" -> "glob"), or "" for built-ins with no group (the
// core language operators).
func BuiltinGroup(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}
