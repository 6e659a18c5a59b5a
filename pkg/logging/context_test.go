package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/fiscal/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("FromContext falls back to default", func(t *testing.T) {
		assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
		//nolint:staticcheck // nil context is handled explicitly
		assert.Equal(t, logging.Default(), logging.FromContext(nil))
	})

	t.Run("WithRunID tags every line", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRunID(ctx, "run-42")

		assert.Equal(t, "run-42", logging.RunID(ctx))
		logging.FromContext(ctx).Info().Msg("started")
		assert.True(t, tl.Contains(`"run_id":"run-42"`))
		assert.True(t, tl.Contains(`"message":"started"`))
	})

	t.Run("chaining entity and list", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithEntity(ctx, "Vendor")
		ctx = logging.WithList(ctx, "Vendors")
		ctx = logging.WithField(ctx, "attempt", 2)

		logging.FromContext(ctx).Warn().Msg("rejected")
		assert.True(t, tl.Contains(`"entity":"Vendor"`))
		assert.True(t, tl.Contains(`"list":"Vendors"`))
		assert.True(t, tl.Contains(`"attempt":2`))
		assert.Len(t, tl.Lines(), 1)
	})

	t.Run("RunID missing", func(t *testing.T) {
		assert.Empty(t, logging.RunID(context.Background()))
	})
}
