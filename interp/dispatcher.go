package interp

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/quasar-dev/quasar/ast"
	"github.com/quasar-dev/quasar/external"
)

// DispatchableCall is an external-call statement whose argument is already
// bound in scope. Certainty is not required; external functions accept
// abstract arguments. Argument is a snapshot of the binding at discovery
// time.
type DispatchableCall struct {
	Variable string
	Function string
	Argument ast.Conform
}

// FindDispatchable scans the program for external calls ready to launch.
func FindDispatchable(state *ExecutionState) []DispatchableCall {
	var calls []DispatchableCall
	for _, stmt := range state.Program.Statements {
		call, ok := stmt.Expr.(ast.ExternalCall)
		if !ok {
			continue
		}
		if arg, ok := state.Lookup(call.Argument); ok {
			calls = append(calls, DispatchableCall{
				Variable: stmt.Variable,
				Function: call.Function,
				Argument: arg,
			})
		}
	}
	return calls
}

// Dispatch launches each call as a task, replacing its statement with a
// PendingCall placeholder. When an approver is set, each call is gated first;
// a declined call is removed from the program outright so it is not
// rediscovered and re-prompted on every later pass.
func Dispatch(ctx context.Context, state *ExecutionState, calls []DispatchableCall, registry *external.Registry, approver Approver) error {
	for _, call := range calls {
		if approver != nil {
			approved, err := approver.Approve(call)
			if err != nil {
				return wrapError(RuntimeError, err, "approval for %s failed", call.Function)
			}
			if !approved {
				log.Warn().
					Str("run_id", state.RunID.String()).
					Str("function", call.Function).
					Str("var", call.Variable).
					Msg("call rejected, dropping statement")
				removeStatement(state, call.Variable)
				continue
			}
		}

		callID := state.GenerateCallID()
		function := call.Function
		argument := call.Argument

		task := SpawnTask(func() (ast.Conform, error) {
			fn, ok := registry.Lookup(function)
			if !ok {
				return ast.Conform{}, newError(ExternalFunctionError, "unknown function: %s", function)
			}
			result, err := fn.Call(ctx, argument)
			if err != nil {
				return ast.Conform{}, wrapError(ExternalFunctionError, err, "%s failed", function)
			}
			return result, nil
		})

		state.Pending = append(state.Pending, &PendingCall{
			ID:       callID,
			Variable: call.Variable,
			Task:     task,
		})

		for i, stmt := range state.Program.Statements {
			if _, ok := stmt.Expr.(ast.ExternalCall); ok && stmt.Variable == call.Variable {
				state.Program.Statements[i].Expr = ast.PendingCall{ID: callID}
				break
			}
		}

		log.Debug().
			Str("run_id", state.RunID.String()).
			Str("call_id", callID).
			Str("function", function).
			Str("var", call.Variable).
			Stringer("arg", argument).
			Msg("dispatched external call")
	}
	return nil
}

// PollPending reaps finished tasks, binds their results, and rewrites the
// matching placeholders into plain variable references for the next rewrite
// pass to collapse. Completed calls are walked in reverse index order so
// removal keeps the remaining indices valid.
func PollPending(state *ExecutionState) (bool, error) {
	changed := false

	var completed []int
	for index, pc := range state.Pending {
		if pc.Task.Finished() {
			completed = append(completed, index)
		}
	}

	for i := len(completed) - 1; i >= 0; i-- {
		index := completed[i]
		pc := state.Pending[index]
		state.Pending = append(state.Pending[:index], state.Pending[index+1:]...)

		result, err := pc.Task.Join()
		if err != nil {
			return false, err
		}

		state.Set(pc.Variable, result)
		for j, stmt := range state.Program.Statements {
			if placeholder, ok := stmt.Expr.(ast.PendingCall); ok && placeholder.ID == pc.ID {
				state.Program.Statements[j].Expr = ast.Variable{Name: pc.Variable}
				break
			}
		}
		changed = true

		log.Debug().
			Str("run_id", state.RunID.String()).
			Str("call_id", pc.ID).
			Str("var", pc.Variable).
			Stringer("result", result).
			Msg("reaped external call")
	}

	return changed, nil
}

func removeStatement(state *ExecutionState, variable string) {
	for i, stmt := range state.Program.Statements {
		if stmt.Variable == variable {
			if _, ok := stmt.Expr.(ast.ExternalCall); ok {
				state.Program.Statements = append(state.Program.Statements[:i], state.Program.Statements[i+1:]...)
				return
			}
		}
	}
}
