package interp

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quasar-dev/quasar/ast"
	"github.com/quasar-dev/quasar/external"
)

// DefaultPollInterval is the cooperative sleep between outer iterations while
// calls are in flight.
const DefaultPollInterval = 100 * time.Millisecond

// Options configures one execution.
type Options struct {
	// Registry resolves external function names. Defaults to the process-wide
	// registry.
	Registry *external.Registry
	// Approver gates each dispatch candidate. Nil dispatches everything.
	Approver Approver
	// Reporter receives the human-readable trace. Defaults to silent.
	Reporter Reporter
	// PollInterval overrides the sleep between outer iterations.
	PollInterval time.Duration
}

// Execute runs a program to quiescence: dispatch ready calls, rewrite until
// no rule fires, poll completions, repeat. It returns the final state; the
// return value, when one was produced, is bound to the program's return
// variable in scope. Any surfaced error aborts the run with no partial
// commit.
func Execute(ctx context.Context, program ast.Program, opts Options) (*ExecutionState, error) {
	registry := opts.Registry
	if registry == nil {
		registry = external.Default()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = &SilentReporter{}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	state := NewExecutionState(program)
	logger := log.With().Str("run_id", state.RunID.String()).Logger()

	reporter.Printf("=== Starting QUASAR Execution ===\n\n")
	logger.Info().Int("statements", len(program.Statements)).Str("return_var", program.ReturnVar).Msg("execution starting")

	iteration := 0
	for {
		iteration++

		dispatchable := FindDispatchable(state)
		if len(dispatchable) > 0 {
			reporter.Printf("Found %d dispatchable calls\n", len(dispatchable))
			if err := Dispatch(ctx, state, dispatchable, registry, opts.Approver); err != nil {
				return nil, err
			}
		}

		// Inner fixpoint: poll, rewrite, evaluate until quiescent.
		for {
			changed := false

			polled, err := PollPending(state)
			if err != nil {
				return nil, err
			}
			changed = changed || polled

			rewrote, err := ApplyRules(state)
			if err != nil {
				return nil, err
			}
			changed = changed || rewrote

			evaluated, err := EvaluateValues(state)
			if err != nil {
				return nil, err
			}
			changed = changed || evaluated

			if !changed {
				break
			}
		}

		logger.Trace().
			Int("iteration", iteration).
			Int("statements", len(state.Program.Statements)).
			Int("pending", len(state.Pending)).
			Uint64("scope_fp", scopeFingerprint(state)).
			Msg("outer iteration quiescent")

		if len(state.Pending) == 0 && len(FindDispatchable(state)) == 0 {
			break
		}

		if len(state.Pending) > 0 {
			reporter.Printf("Waiting for %d pending calls...\n", len(state.Pending))
			if err := sleepCtx(ctx, pollInterval); err != nil {
				return nil, wrapError(RuntimeError, err, "execution cancelled")
			}
		}
	}

	reporter.Printf("\n=== Execution Complete ===\n")
	reporter.Printf("Final scope:\n%s", FormatScope(state.Scope))
	if ret, ok := state.ReturnValue(); ok {
		reporter.Printf("\nReturn value: %s\n", FormatConform(ret))
	} else {
		reporter.Printf("\nno return\n")
	}

	logger.Info().Int("iterations", iteration).Int("bindings", len(state.Scope)).Msg("execution complete")
	return state, nil
}

// scopeFingerprint folds the farm fingerprints of every binding into one
// order-independent diagnostic hash.
func scopeFingerprint(state *ExecutionState) uint64 {
	var fp uint64
	for name, value := range state.Scope {
		var nameHash uint64
		for _, c := range name {
			nameHash = nameHash*31 + uint64(c)
		}
		fp ^= nameHash * ast.FingerprintConform(value)
	}
	return fp
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
