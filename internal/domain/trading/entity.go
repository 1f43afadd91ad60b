package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesync/internal/domain/session"
	"tradesync/pkg/errors"
)

// Side of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType of an order.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Request is a trade-execution request as produced by the trade tool.
// DryRun defaults to true at the tool layer: live execution is opt-in.
type Request struct {
	Symbol    string           `json:"symbol"`
	Side      Side             `json:"side"`
	Quantity  decimal.Decimal  `json:"quantity"`
	OrderType OrderType        `json:"order_type"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	DryRun    bool             `json:"dry_run"`
}

// Validate rejects malformed requests before any state is touched.
func (r *Request) Validate() error {
	if r.Symbol == "" {
		return errors.NewValidationError("symbol", "symbol is required", r.Symbol)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return errors.NewValidationError("side", "side must be buy or sell", string(r.Side))
	}
	if !r.Quantity.IsPositive() {
		return errors.NewValidationError("quantity", "quantity must be positive", r.Quantity.String())
	}
	switch r.OrderType {
	case OrderMarket:
	case OrderLimit:
		if r.Price == nil || !r.Price.IsPositive() {
			return errors.NewValidationError("price", "limit orders require a positive price", r.Price)
		}
	default:
		return errors.NewValidationError("order_type", "order type must be market or limit", string(r.OrderType))
	}
	return nil
}

// pending converts the request into the persisted trade intent.
func (r *Request) pending(now time.Time) *session.PendingTrade {
	return &session.PendingTrade{
		Symbol:    r.Symbol,
		Side:      string(r.Side),
		Quantity:  r.Quantity,
		OrderType: string(r.OrderType),
		Price:     r.Price,
		CreatedAt: now,
	}
}

// Status of a trade-execution attempt.
type Status string

const (
	StatusFilled              Status = "filled"
	StatusPaper               Status = "paper"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusCancelled           Status = "cancelled"
	StatusRejected            Status = "rejected"
	StatusFailed              Status = "failed"
)

// Result is the structured outcome returned to the tool layer.
type Result struct {
	Success      bool                  `json:"success"`
	Status       Status                `json:"status"`
	Message      string                `json:"message"`
	PendingTrade *session.PendingTrade `json:"pending_trade,omitempty"`
	Fill         *Fill                 `json:"fill,omitempty"`
}

// Order is the normalized instruction handed to the broker.
type Order struct {
	UserID         string
	Symbol         string
	Side           Side
	Quantity       decimal.Decimal
	OrderType      OrderType
	Price          *decimal.Decimal
	DryRun         bool
	IdempotencyKey string
}

// Fill reports a completed (or simulated) execution.
type Fill struct {
	OrderID    string          `json:"order_id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Paper      bool            `json:"paper"`
	ExecutedAt time.Time       `json:"executed_at"`
}
