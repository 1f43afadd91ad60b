package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradesync/internal/domain/session"
	"tradesync/internal/metrics"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// Broker places orders against the brokerage. The paper implementation
// simulates fills; the live implementation is an external collaborator.
type Broker interface {
	PlaceOrder(ctx context.Context, order Order) (*Fill, error)
}

// IdempotencyGuard deduplicates order submissions across transport
// retries and process restarts.
type IdempotencyGuard interface {
	// Register claims the key. Returns false when it was already claimed.
	Register(ctx context.Context, key string) (bool, error)
}

// Publisher receives trade lifecycle notifications. Optional.
type Publisher interface {
	PublishTradeExecuted(ctx context.Context, userID string, fill *Fill) error
}

// Config tunes the executor.
type Config struct {
	// LiveEnabled gates live execution globally. When false every request
	// runs as paper regardless of its dry-run flag.
	LiveEnabled bool
}

// Executor guards the side-effecting trade call behind a two-phase
// confirmation: a live request first parks the intent in session state and
// blocks; an explicit confirm arms it; the retried request consumes the
// confirmation exactly once and executes. Dry-run and disabled-trading
// requests bypass the machine entirely.
//
// Any ambiguity (nil session, missing state) reads as "not confirmed".
type Executor struct {
	sessions  *session.Service
	broker    Broker
	guard     IdempotencyGuard
	publisher Publisher
	cfg       Config
	log       *logger.Logger
}

// NewExecutor creates a trade executor. publisher may be nil.
func NewExecutor(sessions *session.Service, broker Broker, guard IdempotencyGuard, publisher Publisher, cfg Config) *Executor {
	return &Executor{
		sessions:  sessions,
		broker:    broker,
		guard:     guard,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Get().With("component", "trade_executor"),
	}
}

// Execute handles a trade-execution request for the given session.
func (e *Executor) Execute(ctx context.Context, sess *session.Session, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "request is required")
	}

	if err := req.Validate(); err != nil {
		metrics.TradeRequests.WithLabelValues("rejected").Inc()
		return &Result{Success: false, Status: StatusRejected, Message: err.Error()}, nil
	}

	live := e.cfg.LiveEnabled && !req.DryRun && sess != nil

	if live {
		state := &sess.State

		switch {
		case state.TradeConfirmed:
			// Confirmation is single-use: clear it before the
			// side-effecting call so a crash mid-execution cannot
			// leave an armed session behind.
			if err := e.clearPending(ctx, sess); err != nil {
				return nil, err
			}

		case state.AwaitingConfirmation && state.PendingTrade != nil:
			metrics.TradeRequests.WithLabelValues("blocked").Inc()
			return &Result{
				Success:      false,
				Status:       StatusPendingConfirmation,
				Message:      "A trade is already awaiting confirmation. Confirm or cancel it first.",
				PendingTrade: state.PendingTrade,
			}, nil

		default:
			pending := req.pending(time.Now())
			if err := e.sessions.UpdateState(ctx, sess, map[string]interface{}{
				session.KeyPendingTrade:         pending,
				session.KeyAwaitingConfirmation: true,
				session.KeyTradeConfirmed:       false,
			}); err != nil {
				return nil, errors.Wrap(err, "failed to persist pending trade")
			}

			metrics.TradeRequests.WithLabelValues("blocked").Inc()
			return &Result{
				Success:      false,
				Status:       StatusPendingConfirmation,
				Message:      fmt.Sprintf("Live trade requested: %s %s %s at %s. Ask the user to confirm to proceed.", pending.Side, pending.Quantity, pending.Symbol, describePrice(req)),
				PendingTrade: pending,
			}, nil
		}
	}

	return e.placeOrder(ctx, sess, req, live)
}

// Confirm arms the pending trade. The next matching execution request
// consumes the confirmation and proceeds.
func (e *Executor) Confirm(ctx context.Context, sess *session.Session) (*Result, error) {
	if sess == nil {
		return &Result{Success: false, Status: StatusFailed, Message: "No active session found."}, nil
	}
	if sess.State.PendingTrade == nil || !sess.State.AwaitingConfirmation {
		return &Result{Success: false, Status: StatusFailed, Message: "There is no trade awaiting confirmation."}, nil
	}

	if err := e.sessions.UpdateState(ctx, sess, map[string]interface{}{
		session.KeyTradeConfirmed: true,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to persist confirmation")
	}

	return &Result{
		Success:      true,
		Status:       StatusConfirmed,
		Message:      "Trade confirmed. Retrying execution...",
		PendingTrade: sess.State.PendingTrade,
	}, nil
}

// Cancel discards the pending trade, if any.
func (e *Executor) Cancel(ctx context.Context, sess *session.Session) (*Result, error) {
	if sess == nil || sess.State.PendingTrade == nil {
		return &Result{Success: false, Status: StatusFailed, Message: "There is no pending trade to cancel."}, nil
	}

	if err := e.clearPending(ctx, sess); err != nil {
		return nil, err
	}
	return &Result{Success: true, Status: StatusCancelled, Message: "Pending trade cancelled."}, nil
}

func (e *Executor) clearPending(ctx context.Context, sess *session.Session) error {
	err := e.sessions.UpdateState(ctx, sess, map[string]interface{}{
		session.KeyPendingTrade:         nil,
		session.KeyAwaitingConfirmation: false,
		session.KeyTradeConfirmed:       false,
	})
	return errors.Wrap(err, "failed to clear pending trade")
}

// placeOrder runs the actual broker call. Every submission carries a fresh
// idempotency key so transport-level retries of the same logical request
// cannot double-submit.
func (e *Executor) placeOrder(ctx context.Context, sess *session.Session, req *Request, live bool) (*Result, error) {
	userID := "anonymous"
	if sess != nil {
		userID = sess.UserID
	}

	order := Order{
		UserID:         userID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		OrderType:      req.OrderType,
		Price:          req.Price,
		DryRun:         !live,
		IdempotencyKey: "trade_" + uuid.New().String(),
	}

	if e.guard != nil {
		fresh, err := e.guard.Register(ctx, order.IdempotencyKey)
		if err != nil {
			e.log.Warnf("Idempotency guard unavailable, proceeding: %v", err)
		} else if !fresh {
			metrics.TradeRequests.WithLabelValues("failed").Inc()
			return &Result{Success: false, Status: StatusFailed, Message: errors.ErrDuplicateRequest.Error()}, nil
		}
	}

	fill, err := e.broker.PlaceOrder(ctx, order)
	if err != nil {
		metrics.TradeRequests.WithLabelValues("failed").Inc()
		return &Result{Success: false, Status: StatusFailed, Message: err.Error()}, nil
	}

	outcome := "executed"
	status := StatusFilled
	if fill.Paper {
		outcome = "paper"
		status = StatusPaper
	}
	metrics.TradeRequests.WithLabelValues(outcome).Inc()

	if e.publisher != nil && !fill.Paper {
		if err := e.publisher.PublishTradeExecuted(ctx, userID, fill); err != nil {
			e.log.Warnf("Failed to publish trade event: %v", err)
		}
	}

	return &Result{
		Success: true,
		Status:  status,
		Message: fmt.Sprintf("%s %s %s filled at %s", fill.Side, fill.Quantity, fill.Symbol, fill.Price),
		Fill:    fill,
	}, nil
}

func describePrice(req *Request) string {
	if req.OrderType == OrderLimit && req.Price != nil {
		return "limit " + req.Price.String()
	}
	return "market price"
}
