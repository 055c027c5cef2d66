// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// Transformer rewrites AST nodes in place. Transform calls t.Transform on x
// and then recurses into the (possibly replaced) result's children,
// invoking t.Transform on each of them in turn.
type Transformer interface {
	Transform(x interface{}) (interface{}, error)
}

// Transform walks x, calling t.Transform on each node before recursing into
// its children. The parser uses this to rewrite bare `data`/`input`
// variables into their root refs after parsing.
func Transform(t Transformer, x interface{}) (interface{}, error) {
	result, err := t.Transform(x)
	if err != nil {
		return nil, err
	}

	switch x := result.(type) {
	case *Module:
		for i, r := range x.Rules {
			v, err := Transform(t, r)
			if err != nil {
				return nil, err
			}
			x.Rules[i] = v.(*Rule)
		}
		return x, nil
	case *Rule:
		v, err := Transform(t, x.Head)
		if err != nil {
			return nil, err
		}
		x.Head = v.(*Head)
		b, err := Transform(t, x.Body)
		if err != nil {
			return nil, err
		}
		x.Body = b.(Body)
		if x.Else != nil {
			e, err := Transform(t, x.Else)
			if err != nil {
				return nil, err
			}
			x.Else = e.(*Rule)
		}
		return x, nil
	case *Head:
		v, err := Transform(t, x.Name)
		if err != nil {
			return nil, err
		}
		if name, ok := v.(Var); ok {
			x.Name = name
		}
		if x.Key != nil {
			v, err := Transform(t, x.Key)
			if err != nil {
				return nil, err
			}
			x.Key = v.(*Term)
		}
		if x.Value != nil {
			v, err := Transform(t, x.Value)
			if err != nil {
				return nil, err
			}
			x.Value = v.(*Term)
		}
		for i, a := range x.Args {
			v, err := Transform(t, a)
			if err != nil {
				return nil, err
			}
			x.Args[i] = v.(*Term)
		}
		return x, nil
	case Body:
		for i, e := range x {
			v, err := Transform(t, e)
			if err != nil {
				return nil, err
			}
			x[i] = v.(*Expr)
		}
		return x, nil
	case *Expr:
		switch ts := x.Terms.(type) {
		case *Term:
			v, err := Transform(t, ts)
			if err != nil {
				return nil, err
			}
			x.Terms = v.(*Term)
		case []*Term:
			for i, term := range ts {
				v, err := Transform(t, term)
				if err != nil {
					return nil, err
				}
				ts[i] = v.(*Term)
			}
		}
		for i, w := range x.With {
			v, err := Transform(t, w.Target)
			if err != nil {
				return nil, err
			}
			w.Target = v.(*Term)
			v, err = Transform(t, w.Value)
			if err != nil {
				return nil, err
			}
			w.Value = v.(*Term)
			x.With[i] = w
		}
		return x, nil
	case *Term:
		v, err := Transform(t, x.Value)
		if err != nil {
			return nil, err
		}
		x.Value = v.(Value)
		return x, nil
	case Ref:
		for i, e := range x {
			v, err := Transform(t, e)
			if err != nil {
				return nil, err
			}
			x[i] = v.(*Term)
		}
		return x, nil
	case Array:
		for i, e := range x {
			v, err := Transform(t, e)
			if err != nil {
				return nil, err
			}
			x[i] = v.(*Term)
		}
		return x, nil
	case *Set:
		terms := x.Slice()
		for i, e := range terms {
			v, err := Transform(t, e)
			if err != nil {
				return nil, err
			}
			terms[i] = v.(*Term)
		}
		*x = Set(terms)
		return x, nil
	case Object:
		for i, pair := range x {
			k, err := Transform(t, pair[0])
			if err != nil {
				return nil, err
			}
			v, err := Transform(t, pair[1])
			if err != nil {
				return nil, err
			}
			x[i] = [2]*Term{k.(*Term), v.(*Term)}
		}
		return x, nil
	case Call:
		for i, e := range x {
			v, err := Transform(t, e)
			if err != nil {
				return nil, err
			}
			x[i] = v.(*Term)
		}
		return x, nil
	case *ArrayComprehension:
		v, err := Transform(t, x.Term)
		if err != nil {
			return nil, err
		}
		x.Term = v.(*Term)
		b, err := Transform(t, x.Body)
		if err != nil {
			return nil, err
		}
		x.Body = b.(Body)
		return x, nil
	case *SetComprehension:
		v, err := Transform(t, x.Term)
		if err != nil {
			return nil, err
		}
		x.Term = v.(*Term)
		b, err := Transform(t, x.Body)
		if err != nil {
			return nil, err
		}
		x.Body = b.(Body)
		return x, nil
	case *ObjectComprehension:
		k, err := Transform(t, x.Key)
		if err != nil {
			return nil, err
		}
		x.Key = k.(*Term)
		v, err := Transform(t, x.Value)
		if err != nil {
			return nil, err
		}
		x.Value = v.(*Term)
		b, err := Transform(t, x.Body)
		if err != nil {
			return nil, err
		}
		x.Body = b.(Body)
		return x, nil
	default:
		return result, nil
	}
}

// GenericTransformer adapts a plain function into a Transformer.
type GenericTransformer struct {
	f func(x interface{}) (interface{}, error)
}

// NewGenericTransformer returns a Transformer backed by f.
func NewGenericTransformer(f func(x interface{}) (interface{}, error)) *GenericTransformer {
	return &GenericTransformer{f: f}
}

// Transform implements the Transformer interface.
func (t *GenericTransformer) Transform(x interface{}) (interface{}, error) {
	return t.f(x)
}
