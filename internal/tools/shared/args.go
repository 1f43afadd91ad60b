package shared

import (
	"github.com/shopspring/decimal"

	"tradesync/pkg/errors"
)

// StringArg extracts a string argument.
func StringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// BoolArg extracts a bool argument, falling back to def when absent.
func BoolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// IntArg extracts an int argument. JSON decoding hands numbers over as
// float64.
func IntArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// DecimalArg extracts a decimal argument from a string or number.
func DecimalArg(args map[string]interface{}, key string) (decimal.Decimal, error) {
	switch v := args[key].(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrInvalidInput, "%s is not a valid number: %q", key, v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, errors.Wrapf(errors.ErrInvalidInput, "%s has unsupported type %T", key, v)
	}
}

// RequireMetadata returns the invocation metadata or an error naming the tool.
func RequireMetadata(ctx interface{ Value(key any) any }, toolName string) (InvocationMetadata, error) {
	meta, ok := ctx.Value(contextKey{}).(InvocationMetadata)
	if !ok || meta.AppName == "" || meta.UserID == "" || meta.SessionID == "" {
		return InvocationMetadata{}, errors.Wrapf(errors.ErrInvalidInput,
			"%s: invocation metadata missing", toolName)
	}
	return meta, nil
}
