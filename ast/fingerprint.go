package ast

import (
	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"
)

// Fingerprints are 64-bit content hashes over a canonical msgpack encoding.
// They are diagnostics, not identity: the executor journal uses them to spot
// scope changes between passes without comparing whole maps.

// Fingerprint hashes a concrete value.
func Fingerprint(v Value) uint64 {
	b, err := msgpack.Marshal(canonical(v))
	if err != nil {
		// The canonical form is built from plain slices and scalars; a
		// marshal failure here means a bug, not bad input.
		panic(err)
	}
	return farm.Hash64(b)
}

// FingerprintConform hashes a possibility set. The possibilities are already
// sorted, so the hash is stable across construction orders.
func FingerprintConform(c Conform) uint64 {
	parts := make([]interface{}, 0, c.Len()+1)
	parts = append(parts, "conform")
	for _, v := range c.Possibilities() {
		parts = append(parts, canonical(v))
	}
	b, err := msgpack.Marshal(parts)
	if err != nil {
		panic(err)
	}
	return farm.Hash64(b)
}

func canonical(v Value) interface{} {
	switch v := v.(type) {
	case BoolValue:
		return []interface{}{"bool", bool(v)}
	case IntValue:
		return []interface{}{"int", int64(v)}
	case FloatValue:
		return []interface{}{"float", floatOrderKey(float64(v))}
	case StrValue:
		return []interface{}{"string", string(v)}
	case NullValue:
		return []interface{}{"null"}
	case ListValue:
		out := []interface{}{"list"}
		for _, e := range v {
			out = append(out, canonical(e))
		}
		return out
	case TupleValue:
		out := []interface{}{"tuple"}
		for _, e := range v {
			out = append(out, canonical(e))
		}
		return out
	}
	panic("unknown value kind")
}
