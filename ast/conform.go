package ast

import (
	"errors"
	"sort"
	"strings"
)

// Conform is an abstract value: the non-empty set of concrete values a
// variable may hold. The possibilities are kept sorted by Value.Cmp so set
// membership and equality are cheap and the printed form is deterministic.
//
// A Conform is never mutated after construction; bindings are overwritten
// wholesale in scope.
type Conform struct {
	possibilities []Value
}

// ErrEmptyConform is returned by Uncertain when given no values. The set of
// possibilities is never empty.
var ErrEmptyConform = errors.New("conform value must have at least one possibility")

// Certain wraps a single concrete value.
func Certain(v Value) Conform {
	return Conform{possibilities: []Value{v}}
}

// Uncertain builds a possibility set from the given values, deduplicating.
func Uncertain(values ...Value) (Conform, error) {
	if len(values) == 0 {
		return Conform{}, ErrEmptyConform
	}
	c := Conform{}
	for _, v := range values {
		c.possibilities = insertSorted(c.possibilities, v)
	}
	return c, nil
}

// Union returns the set union of the two possibility sets.
func (c Conform) Union(other Conform) Conform {
	out := make([]Value, len(c.possibilities))
	copy(out, c.possibilities)
	for _, v := range other.possibilities {
		out = insertSorted(out, v)
	}
	return Conform{possibilities: out}
}

// IsCertain reports whether exactly one possibility remains.
func (c Conform) IsCertain() bool {
	return len(c.possibilities) == 1
}

// AsCertain returns the sole possibility, if there is exactly one.
func (c Conform) AsCertain() (Value, bool) {
	if !c.IsCertain() {
		return nil, false
	}
	return c.possibilities[0], true
}

// Contains reports set membership of a concrete value.
func (c Conform) Contains(v Value) bool {
	i := sort.Search(len(c.possibilities), func(i int) bool {
		return c.possibilities[i].Cmp(v) >= 0
	})
	return i < len(c.possibilities) && c.possibilities[i].Cmp(v) == 0
}

// Equal is set equality.
func (c Conform) Equal(other Conform) bool {
	if len(c.possibilities) != len(other.possibilities) {
		return false
	}
	for i, v := range c.possibilities {
		if v.Cmp(other.possibilities[i]) != 0 {
			return false
		}
	}
	return true
}

// Possibilities returns the sorted possibilities. The caller must not modify
// the returned slice.
func (c Conform) Possibilities() []Value {
	return c.possibilities
}

func (c Conform) Len() int {
	return len(c.possibilities)
}

func (c Conform) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, v := range c.possibilities {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteString("}")
	return b.String()
}

func insertSorted(vs []Value, v Value) []Value {
	i := sort.Search(len(vs), func(i int) bool {
		return vs[i].Cmp(v) >= 0
	})
	if i < len(vs) && vs[i].Cmp(v) == 0 {
		return vs
	}
	vs = append(vs, nil)
	copy(vs[i+1:], vs[i:])
	vs[i] = v
	return vs
}
