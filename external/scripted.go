package external

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.starlark.net/starlark"

	"github.com/quasar-dev/quasar/ast"
)

// ScriptedFunction evaluates a Starlark expression to produce its result,
// letting a runfile stub out external capabilities without recompiling. The
// expression sees `arg`: the argument itself when it is certain, otherwise
// the list of its possibilities.
type ScriptedFunction struct {
	Name    string
	Expr    string
	Latency time.Duration
}

func (f *ScriptedFunction) Call(ctx context.Context, arg ast.Conform) (ast.Conform, error) {
	log.Debug().Str("function", f.Name).Msg("scripted external call running")
	if err := sleep(ctx, f.Latency); err != nil {
		return ast.Conform{}, err
	}

	argValue, err := conformToStarlark(arg)
	if err != nil {
		return ast.Conform{}, fmt.Errorf("converting argument for %s: %w", f.Name, err)
	}

	thread := &starlark.Thread{Name: "external:" + f.Name}
	env := starlark.StringDict{"arg": argValue}
	result, err := starlark.Eval(thread, f.Name, f.Expr, env)
	if err != nil {
		return ast.Conform{}, fmt.Errorf("evaluating %s: %w", f.Name, err)
	}

	value, err := starlarkToValue(result)
	if err != nil {
		return ast.Conform{}, fmt.Errorf("converting result of %s: %w", f.Name, err)
	}
	return ast.Certain(value), nil
}

func conformToStarlark(c ast.Conform) (starlark.Value, error) {
	if v, ok := c.AsCertain(); ok {
		return valueToStarlark(v)
	}
	var elems []starlark.Value
	for _, v := range c.Possibilities() {
		sv, err := valueToStarlark(v)
		if err != nil {
			return nil, err
		}
		elems = append(elems, sv)
	}
	return starlark.NewList(elems), nil
}

func valueToStarlark(v ast.Value) (starlark.Value, error) {
	switch v := v.(type) {
	case ast.BoolValue:
		return starlark.Bool(v), nil
	case ast.IntValue:
		return starlark.MakeInt64(int64(v)), nil
	case ast.FloatValue:
		return starlark.Float(v), nil
	case ast.StrValue:
		return starlark.String(v), nil
	case ast.NullValue:
		return starlark.None, nil
	case ast.ListValue:
		var elems []starlark.Value
		for _, e := range v {
			se, err := valueToStarlark(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, se)
		}
		return starlark.NewList(elems), nil
	case ast.TupleValue:
		var elems []starlark.Value
		for _, e := range v {
			se, err := valueToStarlark(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, se)
		}
		return starlark.Tuple(elems), nil
	}
	return nil, fmt.Errorf("value kind %s has no starlark form", v.Kind())
}

func starlarkToValue(v starlark.Value) (ast.Value, error) {
	switch v := v.(type) {
	case starlark.Bool:
		return ast.BoolValue(v), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s does not fit in 64 bits", v)
		}
		return ast.IntValue(i), nil
	case starlark.Float:
		return ast.FloatValue(v), nil
	case starlark.String:
		return ast.StrValue(v), nil
	case starlark.NoneType:
		return ast.Null, nil
	case *starlark.List:
		out := ast.ListValue{}
		for i := 0; i < v.Len(); i++ {
			e, err := starlarkToValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case starlark.Tuple:
		out := ast.TupleValue{}
		for _, se := range v {
			e, err := starlarkToValue(se)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("starlark type %s has no value form", v.Type())
}
