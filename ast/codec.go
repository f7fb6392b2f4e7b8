package ast

import (
	"encoding/json"
	"fmt"
)

// The wire form is a self-describing JSON tree: every sum-type node carries a
// "type" discriminant, and statement lists keep their order. Any program
// produced by a front end in this shape loads directly.

type jsonValue struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Elements []jsonValue     `json:"elements,omitempty"`
}

type jsonItem struct {
	Value   jsonValue `json:"value"`
	Present bool      `json:"present"`
}

type jsonExpr struct {
	Type          string      `json:"type"`
	Value         *jsonValue  `json:"value,omitempty"`
	Possibilities []jsonValue `json:"possibilities,omitempty"`
	Items         []jsonItem  `json:"items,omitempty"`
	Name          string      `json:"name,omitempty"`
	Vars          []string    `json:"vars,omitempty"`
	Index         *int        `json:"index,omitempty"`
	Var           string      `json:"var,omitempty"`
	Function      string      `json:"function,omitempty"`
	Argument      string      `json:"argument,omitempty"`
	List          string      `json:"list,omitempty"`
	Initial       string      `json:"initial,omitempty"`
	Block         *jsonBlock  `json:"block,omitempty"`
	Condition     string      `json:"condition,omitempty"`
	Then          *jsonBlock  `json:"then,omitempty"`
	Else          *jsonBlock  `json:"else,omitempty"`
	ID            string      `json:"id,omitempty"`
}

type jsonBlock struct {
	Parameter string     `json:"parameter"`
	Body      []jsonStmt `json:"body"`
	ReturnVar string     `json:"return_var"`
}

type jsonStmt struct {
	Variable   string   `json:"variable"`
	Expression jsonExpr `json:"expression"`
}

type jsonProgram struct {
	Statements []jsonStmt `json:"statements"`
	ReturnVar  string     `json:"return_var"`
}

// MarshalProgram serializes a program to its JSON wire form.
func MarshalProgram(p Program) ([]byte, error) {
	jp := jsonProgram{ReturnVar: p.ReturnVar}
	for _, s := range p.Statements {
		js, err := encodeStmt(s)
		if err != nil {
			return nil, err
		}
		jp.Statements = append(jp.Statements, js)
	}
	return json.MarshalIndent(jp, "", "  ")
}

// UnmarshalProgram loads a program from its JSON wire form.
func UnmarshalProgram(data []byte) (Program, error) {
	var jp jsonProgram
	if err := json.Unmarshal(data, &jp); err != nil {
		return Program{}, fmt.Errorf("decoding program: %w", err)
	}
	p := Program{ReturnVar: jp.ReturnVar}
	for _, js := range jp.Statements {
		s, err := decodeStmt(js)
		if err != nil {
			return Program{}, err
		}
		p.Statements = append(p.Statements, s)
	}
	return p, nil
}

func encodeStmt(s Statement) (jsonStmt, error) {
	je, err := encodeExpr(s.Expr)
	if err != nil {
		return jsonStmt{}, err
	}
	return jsonStmt{Variable: s.Variable, Expression: je}, nil
}

func decodeStmt(js jsonStmt) (Statement, error) {
	e, err := decodeExpr(js.Expression)
	if err != nil {
		return Statement{}, fmt.Errorf("statement %q: %w", js.Variable, err)
	}
	return Statement{Variable: js.Variable, Expr: e}, nil
}

func encodeValue(v Value) (jsonValue, error) {
	switch v := v.(type) {
	case BoolValue:
		raw, _ := json.Marshal(bool(v))
		return jsonValue{Type: "bool", Value: raw}, nil
	case IntValue:
		raw, _ := json.Marshal(int64(v))
		return jsonValue{Type: "int", Value: raw}, nil
	case FloatValue:
		raw, _ := json.Marshal(float64(v))
		return jsonValue{Type: "float", Value: raw}, nil
	case StrValue:
		raw, _ := json.Marshal(string(v))
		return jsonValue{Type: "string", Value: raw}, nil
	case NullValue:
		return jsonValue{Type: "null"}, nil
	case ListValue:
		out := jsonValue{Type: "list", Elements: []jsonValue{}}
		for _, e := range v {
			je, err := encodeValue(e)
			if err != nil {
				return jsonValue{}, err
			}
			out.Elements = append(out.Elements, je)
		}
		return out, nil
	case TupleValue:
		out := jsonValue{Type: "tuple", Elements: []jsonValue{}}
		for _, e := range v {
			je, err := encodeValue(e)
			if err != nil {
				return jsonValue{}, err
			}
			out.Elements = append(out.Elements, je)
		}
		return out, nil
	}
	return jsonValue{}, fmt.Errorf("unknown value %T", v)
}

func decodeValue(jv jsonValue) (Value, error) {
	switch jv.Type {
	case "bool":
		var b bool
		if err := json.Unmarshal(jv.Value, &b); err != nil {
			return nil, fmt.Errorf("bool value: %w", err)
		}
		return BoolValue(b), nil
	case "int":
		var i int64
		if err := json.Unmarshal(jv.Value, &i); err != nil {
			return nil, fmt.Errorf("int value: %w", err)
		}
		return IntValue(i), nil
	case "float":
		var f float64
		if err := json.Unmarshal(jv.Value, &f); err != nil {
			return nil, fmt.Errorf("float value: %w", err)
		}
		return FloatValue(f), nil
	case "string":
		var s string
		if err := json.Unmarshal(jv.Value, &s); err != nil {
			return nil, fmt.Errorf("string value: %w", err)
		}
		return StrValue(s), nil
	case "null":
		return Null, nil
	case "list":
		out := ListValue{}
		for _, je := range jv.Elements {
			e, err := decodeValue(je)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case "tuple":
		out := TupleValue{}
		for _, je := range jv.Elements {
			e, err := decodeValue(je)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown value type %q", jv.Type)
}

func encodeConform(c Conform) ([]jsonValue, error) {
	var out []jsonValue
	for _, v := range c.Possibilities() {
		jv, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		out = append(out, jv)
	}
	return out, nil
}

func decodeConform(jvs []jsonValue) (Conform, error) {
	var vs []Value
	for _, jv := range jvs {
		v, err := decodeValue(jv)
		if err != nil {
			return Conform{}, err
		}
		vs = append(vs, v)
	}
	return Uncertain(vs...)
}

func encodeBlock(b Block) (*jsonBlock, error) {
	out := &jsonBlock{Parameter: b.Parameter, ReturnVar: b.ReturnVar, Body: []jsonStmt{}}
	for _, s := range b.Body {
		js, err := encodeStmt(s)
		if err != nil {
			return nil, err
		}
		out.Body = append(out.Body, js)
	}
	return out, nil
}

func decodeBlock(jb *jsonBlock) (Block, error) {
	out := Block{Parameter: jb.Parameter, ReturnVar: jb.ReturnVar}
	for _, js := range jb.Body {
		s, err := decodeStmt(js)
		if err != nil {
			return Block{}, err
		}
		out.Body = append(out.Body, s)
	}
	return out, nil
}

func encodeExpr(e Expression) (jsonExpr, error) {
	switch e := e.(type) {
	case Primitive:
		jv, err := encodeValue(e.Value)
		if err != nil {
			return jsonExpr{}, err
		}
		return jsonExpr{Type: "primitive", Value: &jv}, nil
	case AbstractPrimitive:
		jvs, err := encodeConform(e.Value)
		if err != nil {
			return jsonExpr{}, err
		}
		return jsonExpr{Type: "abstract_primitive", Possibilities: jvs}, nil
	case AbstractList:
		out := jsonExpr{Type: "abstract_list", Items: []jsonItem{}}
		for _, it := range e.Items {
			jv, err := encodeValue(it.Value)
			if err != nil {
				return jsonExpr{}, err
			}
			out.Items = append(out.Items, jsonItem{Value: jv, Present: it.Present})
		}
		return out, nil
	case Variable:
		return jsonExpr{Type: "variable", Name: e.Name}, nil
	case Tuple:
		vars := e.Vars
		if vars == nil {
			vars = []string{}
		}
		return jsonExpr{Type: "tuple", Vars: vars}, nil
	case Projection:
		idx := e.Index
		return jsonExpr{Type: "projection", Index: &idx, Var: e.Var}, nil
	case ExternalCall:
		return jsonExpr{Type: "external_call", Function: e.Function, Argument: e.Argument}, nil
	case Fold:
		jb, err := encodeBlock(e.Block)
		if err != nil {
			return jsonExpr{}, err
		}
		return jsonExpr{Type: "fold", List: e.List, Initial: e.Initial, Block: jb}, nil
	case If:
		jt, err := encodeBlock(e.Then)
		if err != nil {
			return jsonExpr{}, err
		}
		out := jsonExpr{Type: "if", Condition: e.Condition, Then: jt}
		if e.Else != nil {
			je, err := encodeBlock(*e.Else)
			if err != nil {
				return jsonExpr{}, err
			}
			out.Else = je
		}
		return out, nil
	case Join:
		return jsonExpr{Type: "join", Vars: e.Vars}, nil
	case PendingCall:
		return jsonExpr{Type: "pending_call", ID: e.ID}, nil
	}
	return jsonExpr{}, fmt.Errorf("unknown expression %T", e)
}

func decodeExpr(je jsonExpr) (Expression, error) {
	switch je.Type {
	case "primitive":
		if je.Value == nil {
			return nil, fmt.Errorf("primitive expression missing value")
		}
		v, err := decodeValue(*je.Value)
		if err != nil {
			return nil, err
		}
		return Primitive{Value: v}, nil
	case "abstract_primitive":
		c, err := decodeConform(je.Possibilities)
		if err != nil {
			return nil, err
		}
		return AbstractPrimitive{Value: c}, nil
	case "abstract_list":
		out := AbstractList{}
		for _, it := range je.Items {
			v, err := decodeValue(it.Value)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, AbstractListItem{Value: v, Present: it.Present})
		}
		return out, nil
	case "variable":
		return Variable{Name: je.Name}, nil
	case "tuple":
		return Tuple{Vars: je.Vars}, nil
	case "projection":
		if je.Index == nil {
			return nil, fmt.Errorf("projection expression missing index")
		}
		return Projection{Index: *je.Index, Var: je.Var}, nil
	case "external_call":
		return ExternalCall{Function: je.Function, Argument: je.Argument}, nil
	case "fold":
		if je.Block == nil {
			return nil, fmt.Errorf("fold expression missing block")
		}
		b, err := decodeBlock(je.Block)
		if err != nil {
			return nil, err
		}
		return Fold{List: je.List, Initial: je.Initial, Block: b}, nil
	case "if":
		if je.Then == nil {
			return nil, fmt.Errorf("if expression missing then block")
		}
		t, err := decodeBlock(je.Then)
		if err != nil {
			return nil, err
		}
		out := If{Condition: je.Condition, Then: t}
		if je.Else != nil {
			e, err := decodeBlock(je.Else)
			if err != nil {
				return nil, err
			}
			out.Else = &e
		}
		return out, nil
	case "join":
		return Join{Vars: je.Vars}, nil
	case "pending_call":
		return PendingCall{ID: je.ID}, nil
	}
	return nil, fmt.Errorf("unknown expression type %q", je.Type)
}
