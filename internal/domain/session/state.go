package session

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved state keys. Everything else lands in State.Extra.
const (
	KeySummary              = "summary"
	KeySummaryEventCount    = "summary_last_event_count"
	KeyMemoryEventCount     = "memory_last_event_count"
	KeyResearch             = "research"
	KeyPendingTrade         = "pending_trade"
	KeyAwaitingConfirmation = "awaiting_confirmation"
	KeyTradeConfirmed       = "pending_trade_confirmed"
)

// State is the session's keyed state. Reserved keys are typed fields so the
// engine cannot misread them; agent-defined keys go through Extra untouched.
// The whole struct serializes to a flat JSON object, matching the stored
// schema.
type State struct {
	// Rolling conversation summary and the event count at which it was
	// last produced.
	Summary           string
	SummaryEventCount int

	// Event count at the last long-term memory consolidation.
	MemoryEventCount int

	// Per-branch outputs of the parallel research agents, merged in a
	// single write per turn.
	Research map[string]interface{}

	// Two-phase trade confirmation.
	PendingTrade         *PendingTrade
	AwaitingConfirmation bool
	TradeConfirmed       bool

	// Residual agent-defined keys.
	Extra map[string]interface{}
}

// PendingTrade is a proposed live trade persisted while the user decides.
// At most one exists per session.
type PendingTrade struct {
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`
	Quantity  decimal.Decimal  `json:"quantity"`
	OrderType string           `json:"order_type"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewState returns an empty state.
func NewState() State {
	return State{}
}

// Clone returns a deep-enough copy: maps are copied, the pending trade is
// copied by value.
func (s State) Clone() State {
	out := s
	if s.Research != nil {
		out.Research = make(map[string]interface{}, len(s.Research))
		for k, v := range s.Research {
			out.Research[k] = v
		}
	}
	if s.Extra != nil {
		out.Extra = make(map[string]interface{}, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	if s.PendingTrade != nil {
		pt := *s.PendingTrade
		out.PendingTrade = &pt
	}
	return out
}

// Apply merges a key/value delta into the state, routing reserved keys to
// their typed fields. Last write wins.
func (s *State) Apply(delta map[string]interface{}) error {
	for key, val := range delta {
		switch key {
		case KeySummary:
			if v, ok := val.(string); ok {
				s.Summary = v
			}
		case KeySummaryEventCount:
			s.SummaryEventCount = toInt(val)
		case KeyMemoryEventCount:
			s.MemoryEventCount = toInt(val)
		case KeyResearch:
			if m, ok := val.(map[string]interface{}); ok {
				if s.Research == nil {
					s.Research = make(map[string]interface{}, len(m))
				}
				for branch, out := range m {
					s.Research[branch] = out
				}
			}
		case KeyAwaitingConfirmation:
			s.AwaitingConfirmation = toBool(val)
		case KeyTradeConfirmed:
			s.TradeConfirmed = toBool(val)
		case KeyPendingTrade:
			if val == nil {
				s.PendingTrade = nil
				break
			}
			if pt, ok := val.(*PendingTrade); ok {
				s.PendingTrade = pt
				break
			}
			// Tolerate a decoded JSON object
			raw, err := json.Marshal(val)
			if err != nil {
				return err
			}
			var pt PendingTrade
			if err := json.Unmarshal(raw, &pt); err != nil {
				return err
			}
			s.PendingTrade = &pt
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]interface{})
			}
			s.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON flattens typed fields and Extra into one object.
func (s State) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Extra)+7)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.Summary != "" {
		out[KeySummary] = s.Summary
	}
	if s.SummaryEventCount != 0 {
		out[KeySummaryEventCount] = s.SummaryEventCount
	}
	if s.MemoryEventCount != 0 {
		out[KeyMemoryEventCount] = s.MemoryEventCount
	}
	if len(s.Research) > 0 {
		out[KeyResearch] = s.Research
	}
	if s.PendingTrade != nil {
		out[KeyPendingTrade] = s.PendingTrade
	}
	if s.AwaitingConfirmation {
		out[KeyAwaitingConfirmation] = true
	}
	if s.TradeConfirmed {
		out[KeyTradeConfirmed] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON routes reserved keys back into typed fields.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = State{}
	return s.Apply(raw)
}

// Flatten returns the state as a plain key/value map, for callers speaking
// the open-map protocol (the agent runtime adapter).
func (s State) Flatten() map[string]interface{} {
	raw, _ := json.Marshal(s)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	if out == nil {
		out = map[string]interface{}{}
	}
	return out
}

func toInt(val interface{}) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func toBool(val interface{}) bool {
	b, _ := val.(bool)
	return b
}
