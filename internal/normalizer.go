package internal

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

type webhookEnvelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
	ID     json.RawMessage `json:"id"`
	Type   string          `json:"type"`
}

// Normalize extracts (action, payment id) from a raw webhook body. Mercado
// Pago has shipped several payload shapes over time, so the envelope is
// probed in priority order:
//
//  1. {"action": "...", "data": {"id": ...}}
//  2. {"action": "...", "data": <scalar id>}   (legacy)
//  3. {"id": ..., "type": "payment"}
//
// Anything else, including invalid JSON, normalizes to the unrecognized
// variant. Normalize never fails; unrecognized is the catch-all.
func Normalize(raw []byte) NormalizedNotification {
	var env webhookEnvelope
	if err := sonic.ConfigFastest.Unmarshal(raw, &env); err != nil {
		return NormalizedNotification{}
	}

	switch {
	case env.Action != "" && len(env.Data) > 0:
		return NormalizedNotification{
			PaymentID: paymentIDFromData(env.Data),
			Action:    actionKindOf(env.Action),
		}
	case env.Type == "payment" && len(env.ID) > 0:
		return NormalizedNotification{
			PaymentID: scalarID(env.ID),
			Action:    ActionPaymentUpdated,
		}
	default:
		return NormalizedNotification{}
	}
}

func actionKindOf(action string) ActionKind {
	switch action {
	case "payment.created":
		return ActionPaymentCreated
	case "payment.updated":
		return ActionPaymentUpdated
	default:
		return ActionUnrecognized
	}
}

// paymentIDFromData handles both the object form {"id": ...} and the legacy
// form where data is the identifier itself.
func paymentIDFromData(data json.RawMessage) string {
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if err := sonic.ConfigFastest.Unmarshal(data, &obj); err == nil && len(obj.ID) > 0 {
		return scalarID(obj.ID)
	}
	return scalarID(data)
}

// scalarID normalizes a JSON string or number to its string form. Numeric
// ids go through json.Number so large ids survive without float rounding.
func scalarID(raw json.RawMessage) string {
	var s string
	if err := sonic.ConfigFastest.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := sonic.ConfigFastest.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}
