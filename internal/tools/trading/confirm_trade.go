package trading

import (
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
)

// NewConfirmTradeTool builds the confirm_trade tool. It arms the pending
// trade; the agent then retries execute_trade, which consumes the
// confirmation.
func NewConfirmTradeTool(deps shared.Deps) tool.Tool {
	t, _ := functiontool.New(
		functiontool.Config{
			Name:        "confirm_trade",
			Description: "Confirm the trade currently awaiting user confirmation. Call only after the user explicitly agrees.",
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			if deps.Executor == nil || deps.Sessions == nil {
				return nil, errors.Wrapf(errors.ErrInternal, "confirm_trade: executor not configured")
			}

			meta, err := shared.RequireMetadata(ctx, "confirm_trade")
			if err != nil {
				return nil, err
			}

			sess, err := deps.Sessions.GetSession(ctx, meta.AppName, meta.UserID, meta.SessionID, nil)
			if err != nil {
				return nil, errors.Wrap(err, "confirm_trade: failed to load session")
			}

			result, err := deps.Executor.Confirm(ctx, sess)
			if err != nil {
				return nil, err
			}

			return resultMap(result), nil
		})
	return t
}

// NewCancelTradeTool builds the cancel_trade tool.
func NewCancelTradeTool(deps shared.Deps) tool.Tool {
	t, _ := functiontool.New(
		functiontool.Config{
			Name:        "cancel_trade",
			Description: "Cancel the trade currently awaiting user confirmation.",
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			if deps.Executor == nil || deps.Sessions == nil {
				return nil, errors.Wrapf(errors.ErrInternal, "cancel_trade: executor not configured")
			}

			meta, err := shared.RequireMetadata(ctx, "cancel_trade")
			if err != nil {
				return nil, err
			}

			sess, err := deps.Sessions.GetSession(ctx, meta.AppName, meta.UserID, meta.SessionID, nil)
			if err != nil {
				return nil, errors.Wrap(err, "cancel_trade: failed to load session")
			}

			result, err := deps.Executor.Cancel(ctx, sess)
			if err != nil {
				return nil, err
			}

			return resultMap(result), nil
		})
	return t
}
