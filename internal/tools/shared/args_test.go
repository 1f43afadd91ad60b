package shared

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/pkg/errors"
)

func TestDecimalArg(t *testing.T) {
	args := map[string]interface{}{
		"str_qty": "0.25",
		"num_qty": 1.5,
		"bad":     "not-a-number",
		"wrong":   []string{"x"},
	}

	d, err := DecimalArg(args, "str_qty")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("0.25")))

	d, err = DecimalArg(args, "num_qty")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1.5")))

	d, err = DecimalArg(args, "absent")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = DecimalArg(args, "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = DecimalArg(args, "wrong")
	require.Error(t, err)
}

func TestScalarArgs(t *testing.T) {
	args := map[string]interface{}{
		"symbol":  "BTCUSDT",
		"dry_run": false,
		"limit":   float64(3), // JSON numbers decode as float64
	}

	assert.Equal(t, "BTCUSDT", StringArg(args, "symbol"))
	assert.Equal(t, "", StringArg(args, "missing"))
	assert.False(t, BoolArg(args, "dry_run", true))
	assert.True(t, BoolArg(args, "missing", true))
	assert.Equal(t, 3, IntArg(args, "limit"))
	assert.Equal(t, 0, IntArg(args, "missing"))
}

func TestRequireMetadata(t *testing.T) {
	meta := InvocationMetadata{AppName: "tradesync", UserID: "user-1", SessionID: "sess-1"}
	ctx := WithInvocationMetadata(context.Background(), meta)

	got, err := RequireMetadata(ctx, "execute_trade")
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	_, err = RequireMetadata(context.Background(), "execute_trade")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute_trade")

	partial := WithInvocationMetadata(context.Background(), InvocationMetadata{AppName: "tradesync"})
	_, err = RequireMetadata(partial, "execute_trade")
	require.Error(t, err)
}
