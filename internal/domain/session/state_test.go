package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_ApplyRoutesReservedKeys(t *testing.T) {
	s := NewState()

	err := s.Apply(map[string]interface{}{
		KeySummary:              "user holds ETH",
		KeySummaryEventCount:    float64(41), // decoded JSON numbers arrive as float64
		KeyMemoryEventCount:     24,
		KeyAwaitingConfirmation: true,
		"favorite_pair":         "ETH/USD",
	})
	require.NoError(t, err)

	assert.Equal(t, "user holds ETH", s.Summary)
	assert.Equal(t, 41, s.SummaryEventCount)
	assert.Equal(t, 24, s.MemoryEventCount)
	assert.True(t, s.AwaitingConfirmation)
	assert.Equal(t, "ETH/USD", s.Extra["favorite_pair"])
}

func TestState_ApplyMergesResearchBranches(t *testing.T) {
	s := NewState()

	require.NoError(t, s.Apply(map[string]interface{}{
		KeyResearch: map[string]interface{}{"memory": "low risk"},
	}))
	require.NoError(t, s.Apply(map[string]interface{}{
		KeyResearch: map[string]interface{}{"knowledge": "macro notes"},
	}))

	assert.Equal(t, "low risk", s.Research["memory"])
	assert.Equal(t, "macro notes", s.Research["knowledge"])
}

func TestState_ApplyPendingTradeFromDecodedJSON(t *testing.T) {
	s := NewState()

	err := s.Apply(map[string]interface{}{
		KeyPendingTrade: map[string]interface{}{
			"symbol":     "BTCUSDT",
			"side":       "buy",
			"quantity":   "0.5",
			"order_type": "limit",
			"price":      "61000",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, s.PendingTrade)
	assert.Equal(t, "BTCUSDT", s.PendingTrade.Symbol)
	assert.True(t, s.PendingTrade.Quantity.Equal(decimal.RequireFromString("0.5")))
	require.NotNil(t, s.PendingTrade.Price)
	assert.True(t, s.PendingTrade.Price.Equal(decimal.RequireFromString("61000")))

	// nil clears it.
	require.NoError(t, s.Apply(map[string]interface{}{KeyPendingTrade: nil}))
	assert.Nil(t, s.PendingTrade)
}

func TestState_JSONRoundTripIsFlat(t *testing.T) {
	price := decimal.RequireFromString("61000")
	s := State{
		Summary:           "digest",
		SummaryEventCount: 41,
		Research:          map[string]interface{}{"memory": "low risk"},
		PendingTrade: &PendingTrade{
			Symbol:    "BTCUSDT",
			Side:      "buy",
			Quantity:  decimal.RequireFromString("0.5"),
			OrderType: "limit",
			Price:     &price,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		AwaitingConfirmation: true,
		Extra:                map[string]interface{}{"favorite_pair": "ETH/USD"},
	}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	// Flat object: reserved keys and agent keys at the same level.
	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "digest", flat[KeySummary])
	assert.Equal(t, "ETH/USD", flat["favorite_pair"])
	assert.Contains(t, flat, KeyPendingTrade)

	var back State
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s.Summary, back.Summary)
	assert.Equal(t, s.SummaryEventCount, back.SummaryEventCount)
	assert.True(t, back.AwaitingConfirmation)
	require.NotNil(t, back.PendingTrade)
	assert.True(t, back.PendingTrade.Quantity.Equal(s.PendingTrade.Quantity))
	assert.Equal(t, "ETH/USD", back.Extra["favorite_pair"])
}

func TestState_MarshalOmitsZeroValues(t *testing.T) {
	raw, err := json.Marshal(NewState())
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := State{
		Research:     map[string]interface{}{"memory": "a"},
		Extra:        map[string]interface{}{"k": "v"},
		PendingTrade: &PendingTrade{Symbol: "BTCUSDT"},
	}

	clone := s.Clone()
	clone.Research["memory"] = "b"
	clone.Extra["k"] = "w"
	clone.PendingTrade.Symbol = "ETHUSDT"

	assert.Equal(t, "a", s.Research["memory"])
	assert.Equal(t, "v", s.Extra["k"])
	assert.Equal(t, "BTCUSDT", s.PendingTrade.Symbol)
}

func TestState_FlattenEmptyStateIsEmptyMap(t *testing.T) {
	flat := NewState().Flatten()
	require.NotNil(t, flat)
	assert.Empty(t, flat)
}
