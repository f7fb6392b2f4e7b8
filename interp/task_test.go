package interp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasar-dev/quasar/ast"
)

func TestTaskDeliversResult(t *testing.T) {
	task := SpawnTask(func() (ast.Conform, error) {
		return ast.Certain(ast.IntValue(7)), nil
	})

	result, err := task.Join()
	require.NoError(t, err)
	assert.True(t, result.Equal(ast.Certain(ast.IntValue(7))))
	assert.True(t, task.Finished())
}

func TestTaskFinishedIsNonBlocking(t *testing.T) {
	release := make(chan struct{})
	task := SpawnTask(func() (ast.Conform, error) {
		<-release
		return ast.Certain(ast.Null), nil
	})

	assert.False(t, task.Finished())
	close(release)
	require.Eventually(t, task.Finished, time.Second, time.Millisecond)
}

func TestTaskPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	task := SpawnTask(func() (ast.Conform, error) {
		return ast.Conform{}, boom
	})

	_, err := task.Join()
	assert.ErrorIs(t, err, boom)
}

func TestTaskRecoversPanic(t *testing.T) {
	task := SpawnTask(func() (ast.Conform, error) {
		panic("dead")
	})

	_, err := task.Join()
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, RuntimeError, ierr.Kind)
}
