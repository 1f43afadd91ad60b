package trading

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/pkg/errors"
)

type stubQuoter struct {
	price decimal.Decimal
	err   error
}

func (q *stubQuoter) LastPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return q.price, q.err
}

func TestPaperBroker_LimitOrderFillsAtLimitPrice(t *testing.T) {
	broker := NewPaperBroker(nil)
	price := decimal.RequireFromString("61000")

	fill, err := broker.PlaceOrder(context.Background(), Order{
		Symbol:    "BTCUSDT",
		Side:      SideBuy,
		Quantity:  decimal.RequireFromString("0.25"),
		OrderType: OrderLimit,
		Price:     &price,
	})
	require.NoError(t, err)

	assert.True(t, fill.Paper)
	assert.True(t, fill.Price.Equal(price))
	assert.True(t, strings.HasPrefix(fill.OrderID, "paper_"))
}

func TestPaperBroker_MarketOrderFillsAtQuote(t *testing.T) {
	quoter := &stubQuoter{price: decimal.RequireFromString("59500")}
	broker := NewPaperBroker(quoter)

	fill, err := broker.PlaceOrder(context.Background(), Order{
		Symbol:    "BTCUSDT",
		Side:      SideSell,
		Quantity:  decimal.NewFromInt(1),
		OrderType: OrderMarket,
	})
	require.NoError(t, err)
	assert.True(t, fill.Price.Equal(quoter.price))
}

func TestPaperBroker_MarketOrderWithoutQuoteFillsAtZero(t *testing.T) {
	t.Run("no quoter", func(t *testing.T) {
		broker := NewPaperBroker(nil)
		fill, err := broker.PlaceOrder(context.Background(), Order{
			Symbol: "BTCUSDT", Side: SideBuy, Quantity: decimal.NewFromInt(1), OrderType: OrderMarket,
		})
		require.NoError(t, err)
		assert.True(t, fill.Price.IsZero())
	})

	t.Run("quoter error", func(t *testing.T) {
		broker := NewPaperBroker(&stubQuoter{err: errors.ErrUnavailable})
		fill, err := broker.PlaceOrder(context.Background(), Order{
			Symbol: "BTCUSDT", Side: SideBuy, Quantity: decimal.NewFromInt(1), OrderType: OrderMarket,
		})
		require.NoError(t, err)
		assert.True(t, fill.Price.IsZero())
	})
}
