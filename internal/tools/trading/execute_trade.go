package trading

import (
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	tradingdomain "tradesync/internal/domain/trading"
	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
)

// NewExecuteTradeTool builds the execute_trade tool. Dry-run defaults to
// true: the model must set dry_run=false explicitly to request live
// execution, and live execution still goes through user confirmation.
func NewExecuteTradeTool(deps shared.Deps) tool.Tool {
	t, _ := functiontool.New(
		functiontool.Config{
			Name: "execute_trade",
			Description: "Execute a trade. Arguments: symbol, side (buy/sell), quantity, " +
				"order_type (market/limit), price (required for limit), dry_run (default true). " +
				"Live trades require the user to confirm via confirm_trade first.",
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			if deps.Executor == nil || deps.Sessions == nil {
				return nil, errors.Wrapf(errors.ErrInternal, "execute_trade: executor not configured")
			}

			meta, err := shared.RequireMetadata(ctx, "execute_trade")
			if err != nil {
				return nil, err
			}

			req, err := parseTradeRequest(args)
			if err != nil {
				return nil, err
			}

			sess, err := deps.Sessions.GetSession(ctx, meta.AppName, meta.UserID, meta.SessionID, nil)
			if err != nil {
				return nil, errors.Wrap(err, "execute_trade: failed to load session")
			}

			result, err := deps.Executor.Execute(ctx, sess, req)
			if err != nil {
				return nil, err
			}

			return resultMap(result), nil
		})
	return t
}

func parseTradeRequest(args map[string]interface{}) (*tradingdomain.Request, error) {
	quantity, err := shared.DecimalArg(args, "quantity")
	if err != nil {
		return nil, err
	}

	req := &tradingdomain.Request{
		Symbol:    shared.StringArg(args, "symbol"),
		Side:      tradingdomain.Side(shared.StringArg(args, "side")),
		Quantity:  quantity,
		OrderType: tradingdomain.OrderType(shared.StringArg(args, "order_type")),
		DryRun:    shared.BoolArg(args, "dry_run", true),
	}
	if req.OrderType == "" {
		req.OrderType = tradingdomain.OrderMarket
	}

	if _, ok := args["price"]; ok {
		price, err := shared.DecimalArg(args, "price")
		if err != nil {
			return nil, err
		}
		if !price.IsZero() {
			req.Price = &price
		}
	}

	return req, nil
}

func resultMap(result *tradingdomain.Result) map[string]interface{} {
	out := map[string]interface{}{
		"success": result.Success,
		"status":  string(result.Status),
		"message": result.Message,
	}
	if result.PendingTrade != nil {
		out["pending_trade"] = result.PendingTrade
	}
	if result.Fill != nil {
		out["fill"] = result.Fill
	}
	return out
}
