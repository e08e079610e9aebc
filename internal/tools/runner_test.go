package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	r := ExecRunner{}
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := r.Run(ctx, "sh", "-c", "echo hello")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(res.Stdout))
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		res, err := r.Run(ctx, "sh", "-c", "echo oops >&2; exit 3")
		require.Error(t, err)
		assert.Equal(t, 3, res.ExitCode)

		var cmdErr *CommandError
		require.True(t, errors.As(err, &cmdErr))
		assert.Contains(t, cmdErr.Error(), "oops")
	})

	t.Run("missing binary", func(t *testing.T) {
		res, err := r.Run(ctx, "sysconfd-no-such-binary")
		require.Error(t, err)
		assert.Equal(t, 127, res.ExitCode)
	})
}
