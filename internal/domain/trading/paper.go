package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradesync/pkg/logger"
)

// Quoter supplies a reference price for market fills. Optional; when
// absent market paper orders fill at zero, which is fine for flows that
// only care about the side-effect-free acknowledgement.
type Quoter interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PaperBroker simulates execution without touching an exchange. Limit
// orders fill at their limit price; market orders fill at the quoted
// last price when a quoter is configured.
type PaperBroker struct {
	quoter Quoter
	log    *logger.Logger
}

// NewPaperBroker creates a simulated broker. quoter may be nil.
func NewPaperBroker(quoter Quoter) *PaperBroker {
	return &PaperBroker{
		quoter: quoter,
		log:    logger.Get().With("component", "paper_broker"),
	}
}

// PlaceOrder fills the order immediately in simulation.
func (b *PaperBroker) PlaceOrder(ctx context.Context, order Order) (*Fill, error) {
	price := decimal.Zero
	switch {
	case order.OrderType == OrderLimit && order.Price != nil:
		price = *order.Price
	case b.quoter != nil:
		quoted, err := b.quoter.LastPrice(ctx, order.Symbol)
		if err != nil {
			b.log.Warnf("Quote unavailable for %s, filling at zero: %v", order.Symbol, err)
		} else {
			price = quoted
		}
	}

	fill := &Fill{
		OrderID:    "paper_" + uuid.New().String(),
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Price:      price,
		Paper:      true,
		ExecutedAt: time.Now(),
	}

	b.log.Infow("Paper order filled",
		"symbol", fill.Symbol,
		"side", fill.Side,
		"quantity", fill.Quantity.String(),
		"price", fill.Price.String())

	return fill, nil
}
