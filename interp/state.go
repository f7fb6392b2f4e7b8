package interp

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quasar-dev/quasar/ast"
)

// PendingCall tracks one dispatched external call: the placeholder id woven
// into the program, the variable the result will bind, and the running task.
type PendingCall struct {
	ID       string
	Variable string
	Task     *Task
}

// ExecutionState owns everything a run mutates: the program being rewritten,
// the scope of finalized bindings, and the in-flight calls. It is confined to
// the executor goroutine; tasks only ever touch their own result slot.
type ExecutionState struct {
	RunID       uuid.UUID
	Program     ast.Program
	Scope       map[string]ast.Conform
	Pending     []*PendingCall
	callCounter int
}

func NewExecutionState(program ast.Program) *ExecutionState {
	return &ExecutionState{
		RunID:   uuid.New(),
		Program: program,
		Scope:   make(map[string]ast.Conform),
	}
}

// Lookup returns the finalized binding for name, if any. A name present in
// scope is final; rewrite rules read values from here, never from other
// statements.
func (s *ExecutionState) Lookup(name string) (ast.Conform, bool) {
	v, ok := s.Scope[name]
	return v, ok
}

// Set overwrites the binding for name wholesale.
func (s *ExecutionState) Set(name string, value ast.Conform) {
	s.Scope[name] = value
}

// GenerateCallID returns the next placeholder id, "?S<n>" with n strictly
// increasing over the life of this state.
func (s *ExecutionState) GenerateCallID() string {
	s.callCounter++
	return fmt.Sprintf("?S%d", s.callCounter)
}

// ReturnValue is the binding of the program's return variable; absence is a
// permitted outcome.
func (s *ExecutionState) ReturnValue() (ast.Conform, bool) {
	return s.Lookup(s.Program.ReturnVar)
}
