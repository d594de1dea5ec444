package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/command"
)

func TestExecutionLog_Append(t *testing.T) {
	t.Parallel()

	l := command.NewExecutionLog(3)

	for i := 1; i <= 2; i++ {
		l.Append(&command.ExecutionResult{TotalCommands: i})
	}

	require.Equal(t, 2, l.Len())

	entries := l.Entries()
	assert.Equal(t, 1, entries[0].TotalCommands)
	assert.Equal(t, 2, entries[1].TotalCommands)
}

func TestExecutionLog_Wraps(t *testing.T) {
	t.Parallel()

	l := command.NewExecutionLog(3)

	for i := 1; i <= 5; i++ {
		l.Append(&command.ExecutionResult{TotalCommands: i})
	}

	require.Equal(t, 3, l.Len())

	entries := l.Entries()
	assert.Equal(t, 3, entries[0].TotalCommands, "oldest entries are overwritten")
	assert.Equal(t, 5, entries[2].TotalCommands)
}

func TestExecutionLog_DefaultCapacity(t *testing.T) {
	t.Parallel()

	l := command.NewExecutionLog(0)

	for i := range 150 {
		l.Append(&command.ExecutionResult{TotalCommands: i})
	}

	assert.Equal(t, 100, l.Len())
}

func TestExecutionLog_Clear(t *testing.T) {
	t.Parallel()

	l := command.NewExecutionLog(2)
	l.Append(&command.ExecutionResult{})
	l.Clear()

	assert.Zero(t, l.Len())
	assert.Empty(t, l.Entries())

	l.Append(&command.ExecutionResult{TotalCommands: 9})
	require.Equal(t, 1, l.Len())
	assert.Equal(t, 9, l.Entries()[0].TotalCommands)
}

func TestExecutionLog_NilIgnored(t *testing.T) {
	t.Parallel()

	l := command.NewExecutionLog(2)
	l.Append(nil)

	assert.Zero(t, l.Len())
}
