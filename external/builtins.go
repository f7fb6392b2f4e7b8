package external

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quasar-dev/quasar/ast"
)

// The builtin stubs mirror the reference driver: each sleeps a fixed latency
// and returns a certain value, standing in for a real vision or query
// backend.

// RegisterBuiltins installs find, simple_query, and exists.
func RegisterBuiltins(r *Registry) {
	r.Register("find", &FindFunction{Latency: time.Second})
	r.Register("simple_query", &SimpleQueryFunction{Latency: 500 * time.Millisecond})
	r.Register("exists", &ExistsFunction{Latency: 300 * time.Millisecond})
}

// FindFunction returns a list of patch handles.
type FindFunction struct {
	Latency time.Duration
}

func (f *FindFunction) Call(ctx context.Context, _ ast.Conform) (ast.Conform, error) {
	log.Debug().Str("function", "find").Msg("external call running")
	if err := sleep(ctx, f.Latency); err != nil {
		return ast.Conform{}, err
	}
	return ast.Certain(ast.ListValue{
		ast.StrValue("patch1"),
		ast.StrValue("patch2"),
	}), nil
}

// SimpleQueryFunction answers a free-form query with a string.
type SimpleQueryFunction struct {
	Latency time.Duration
}

func (f *SimpleQueryFunction) Call(ctx context.Context, _ ast.Conform) (ast.Conform, error) {
	log.Debug().Str("function", "simple_query").Msg("external call running")
	if err := sleep(ctx, f.Latency); err != nil {
		return ast.Conform{}, err
	}
	return ast.Certain(ast.StrValue("yes")), nil
}

// ExistsFunction answers a presence check with a boolean.
type ExistsFunction struct {
	Latency time.Duration
}

func (f *ExistsFunction) Call(ctx context.Context, _ ast.Conform) (ast.Conform, error) {
	log.Debug().Str("function", "exists").Msg("external call running")
	if err := sleep(ctx, f.Latency); err != nil {
		return ast.Conform{}, err
	}
	return ast.Certain(ast.BoolTrue), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
