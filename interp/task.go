package interp

import (
	"github.com/quasar-dev/quasar/ast"
)

// Task is one external call in flight: a goroutine producing a single
// possibility set or an error. The executor polls Finished between rewrite
// passes and calls Join exactly once, after Finished reports true.
type Task struct {
	done     chan struct{}
	result   ast.Conform
	err      error
	panicked bool
}

// SpawnTask runs fn on its own goroutine. A panic in fn is recovered and
// reported through Join as a RuntimeError rather than taking the process
// down.
func SpawnTask(fn func() (ast.Conform, error)) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.panicked = true
			}
		}()
		t.result, t.err = fn()
	}()
	return t
}

// Finished reports readiness without blocking.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Join waits for the task and returns its result.
func (t *Task) Join() (ast.Conform, error) {
	<-t.done
	if t.panicked {
		return ast.Conform{}, newError(RuntimeError, "Task panicked")
	}
	return t.result, t.err
}
