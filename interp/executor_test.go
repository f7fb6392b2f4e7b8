package interp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasar-dev/quasar/ast"
	"github.com/quasar-dev/quasar/external"
)

func testOptions(registry *external.Registry) Options {
	return Options{
		Registry:     registry,
		PollInterval: time.Millisecond,
	}
}

func TestPureArithmeticNoCalls(t *testing.T) {
	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "a", Expr: ast.Primitive{Value: ast.IntValue(3)}},
			{Variable: "b", Expr: ast.Primitive{Value: ast.IntValue(4)}},
			{Variable: "p", Expr: ast.Tuple{Vars: []string{"a", "b"}}},
			{Variable: "r", Expr: ast.Projection{Index: 1, Var: "p"}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(external.NewRegistry()))
	require.NoError(t, err)

	r, ok := state.ReturnValue()
	require.True(t, ok)
	assert.True(t, r.Equal(ast.Certain(ast.IntValue(4))))
	assert.Empty(t, state.Pending)
	assert.Equal(t, "?S1", state.GenerateCallID(), "no calls were dispatched")
}

func TestFoldOverEmptyListEndToEnd(t *testing.T) {
	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "xs", Expr: ast.Primitive{Value: ast.ListValue{}}},
			{Variable: "i", Expr: ast.Primitive{Value: ast.IntValue(0)}},
			{Variable: "r", Expr: ast.Fold{List: "xs", Initial: "i", Block: strBlock("unused")}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(external.NewRegistry()))
	require.NoError(t, err)

	r, ok := state.ReturnValue()
	require.True(t, ok)
	assert.True(t, r.Equal(ast.Certain(ast.IntValue(0))))
}

func TestConditionalFanOutEndToEnd(t *testing.T) {
	elseBlock := strBlock("F")
	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "c", Expr: ast.AbstractPrimitive{Value: uncertain(t, ast.BoolTrue, ast.BoolFalse)}},
			{Variable: "r", Expr: ast.If{Condition: "c", Then: strBlock("T"), Else: &elseBlock}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(external.NewRegistry()))
	require.NoError(t, err)

	r, ok := state.ReturnValue()
	require.True(t, ok)
	assert.True(t, r.Equal(uncertain(t, ast.StrValue("T"), ast.StrValue("F"))))
}

func TestExternalCallSplice(t *testing.T) {
	registry := stubRegistry("find", func(ast.Conform) (ast.Conform, error) {
		return ast.Certain(ast.ListValue{ast.StrValue("p1"), ast.StrValue("p2")}), nil
	})

	program := ast.Program{
		ReturnVar: "ps",
		Statements: []ast.Statement{
			{Variable: "img", Expr: ast.Primitive{Value: ast.StrValue("x")}},
			{Variable: "ps", Expr: ast.ExternalCall{Function: "find", Argument: "img"}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(registry))
	require.NoError(t, err)

	ps, ok := state.ReturnValue()
	require.True(t, ok)
	assert.True(t, ps.Equal(ast.Certain(ast.ListValue{ast.StrValue("p1"), ast.StrValue("p2")})))

	assert.Empty(t, state.Pending)
	assert.Equal(t, "?S2", state.GenerateCallID(), "exactly one call was dispatched as ?S1")
}

func TestProjectionTypeErrorAbortsExecution(t *testing.T) {
	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "a", Expr: ast.Primitive{Value: ast.IntValue(1)}},
			{Variable: "r", Expr: ast.Projection{Index: 0, Var: "a"}},
		},
	}

	_, err := Execute(context.Background(), program, testOptions(external.NewRegistry()))
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, TypeError, ierr.Kind)
}

func TestApprovalRejectionTerminates(t *testing.T) {
	registry := stubRegistry("find", func(ast.Conform) (ast.Conform, error) {
		return ast.Certain(ast.StrValue("never")), nil
	})

	program := ast.Program{
		ReturnVar: "ps",
		Statements: []ast.Statement{
			{Variable: "img", Expr: ast.Primitive{Value: ast.StrValue("x")}},
			{Variable: "ps", Expr: ast.ExternalCall{Function: "find", Argument: "img"}},
		},
	}

	opts := testOptions(registry)
	opts.Approver = rejectAll{}

	state, err := Execute(context.Background(), program, opts)
	require.NoError(t, err)

	_, ok := state.ReturnValue()
	assert.False(t, ok, "no return binding was produced")
	assert.Empty(t, state.Pending)
	assert.Empty(t, state.Program.Statements)
}

func TestConsoleApprover(t *testing.T) {
	var out strings.Builder
	call := DispatchableCall{Function: "find", Argument: ast.Certain(ast.StrValue("x"))}

	yes := NewConsoleApprover(strings.NewReader("  Y \n"), &out)
	ok, err := yes.Approve(call)
	require.NoError(t, err)
	assert.True(t, ok, "trimmed, case-insensitive y approves")

	no := NewConsoleApprover(strings.NewReader("nope\n"), &out)
	ok, err = no.Approve(call)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Contains(t, out.String(), "find")
}

// Dependent calls resolve across outer iterations: the second call's argument
// only becomes available once the first completes.
func TestChainedCallsAcrossIterations(t *testing.T) {
	registry := external.NewRegistry()
	registry.Register("first", stubFn(func(ast.Conform) (ast.Conform, error) {
		time.Sleep(5 * time.Millisecond)
		return ast.Certain(ast.StrValue("intermediate")), nil
	}))
	registry.Register("second", stubFn(func(arg ast.Conform) (ast.Conform, error) {
		v, _ := arg.AsCertain()
		return ast.Certain(ast.ListValue{v, ast.StrValue("done")}), nil
	}))

	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "seed", Expr: ast.Primitive{Value: ast.StrValue("go")}},
			{Variable: "mid", Expr: ast.ExternalCall{Function: "first", Argument: "seed"}},
			{Variable: "r", Expr: ast.ExternalCall{Function: "second", Argument: "mid"}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(registry))
	require.NoError(t, err)

	r, ok := state.ReturnValue()
	require.True(t, ok)
	want := ast.Certain(ast.ListValue{ast.StrValue("intermediate"), ast.StrValue("done")})
	assert.True(t, r.Equal(want))
	assert.Equal(t, "?S3", state.GenerateCallID(), "two calls dispatched in order")
}

// Calls inside a fold body only become dispatchable after unrolling, and the
// conditional over the external result fans in again. This is the reference
// driver's shape end to end.
func TestFoldWithExternalCallsAndConditional(t *testing.T) {
	registry := external.NewRegistry()
	registry.Register("find", stubFn(func(ast.Conform) (ast.Conform, error) {
		return ast.Certain(ast.ListValue{ast.StrValue("d1"), ast.StrValue("d2")}), nil
	}))
	registry.Register("exists", stubFn(func(ast.Conform) (ast.Conform, error) {
		return ast.Certain(ast.BoolTrue), nil
	}))

	// For each element: keep the element if exists(elem), else keep the
	// accumulator. With exists == true the fold ends at the last element.
	body := ast.Block{
		Parameter: "p",
		ReturnVar: "updated",
		Body: []ast.Statement{
			{Variable: "acc", Expr: ast.Projection{Index: 0, Var: "p"}},
			{Variable: "elem", Expr: ast.Projection{Index: 1, Var: "p"}},
			{Variable: "present", Expr: ast.ExternalCall{Function: "exists", Argument: "elem"}},
			{Variable: "updated", Expr: ast.If{
				Condition: "present",
				Then:      ast.Block{Parameter: "_", ReturnVar: "elem"},
				Else:      &ast.Block{Parameter: "_", ReturnVar: "acc"},
			}},
		},
	}

	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "img", Expr: ast.Primitive{Value: ast.StrValue("scene")}},
			{Variable: "drinks", Expr: ast.ExternalCall{Function: "find", Argument: "img"}},
			{Variable: "init", Expr: ast.Primitive{Value: ast.Null}},
			{Variable: "r", Expr: ast.Fold{List: "drinks", Initial: "init", Block: body}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(registry))
	require.NoError(t, err)

	r, ok := state.ReturnValue()
	require.True(t, ok)
	assert.True(t, r.Equal(ast.Certain(ast.StrValue("d2"))))
}

func TestResolvedNamesLeaveTheProgram(t *testing.T) {
	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "a", Expr: ast.Primitive{Value: ast.IntValue(1)}},
			{Variable: "r", Expr: ast.Variable{Name: "a"}},
		},
	}

	state, err := Execute(context.Background(), program, testOptions(external.NewRegistry()))
	require.NoError(t, err)

	// Invariant: after a full pass no name is bound in scope while its
	// statement still sits in the program.
	for _, stmt := range state.Program.Statements {
		_, inScope := state.Lookup(stmt.Variable)
		assert.False(t, inScope, "%s is both resolved and pending", stmt.Variable)
	}
}

func TestExecutionCancellable(t *testing.T) {
	registry := stubRegistry("slow", func(ast.Conform) (ast.Conform, error) {
		time.Sleep(10 * time.Second)
		return ast.Certain(ast.Null), nil
	})

	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "x", Expr: ast.Primitive{Value: ast.Null}},
			{Variable: "r", Expr: ast.ExternalCall{Function: "slow", Argument: "x"}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Execute(ctx, program, testOptions(registry))
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, RuntimeError, ierr.Kind)
}

func TestReporterTraceLines(t *testing.T) {
	registry := stubRegistry("find", func(ast.Conform) (ast.Conform, error) {
		time.Sleep(5 * time.Millisecond)
		return ast.Certain(ast.StrValue("ok")), nil
	})

	program := ast.Program{
		ReturnVar: "r",
		Statements: []ast.Statement{
			{Variable: "x", Expr: ast.Primitive{Value: ast.StrValue("in")}},
			{Variable: "r", Expr: ast.ExternalCall{Function: "find", Argument: "x"}},
		},
	}

	var out strings.Builder
	opts := testOptions(registry)
	opts.Reporter = &ColorReporter{Writer: &out}

	_, err := Execute(context.Background(), program, opts)
	require.NoError(t, err)

	trace := out.String()
	assert.Contains(t, trace, "=== Starting QUASAR Execution ===")
	assert.Contains(t, trace, "Found 1 dispatchable calls")
	assert.Contains(t, trace, "=== Execution Complete ===")
	assert.Contains(t, trace, "Return value:")
}
