// Package extractor turns captured output text into the value the later
// judging phases work on. Extraction never fails: malformed output is handed
// on as text.
package extractor

import (
	"strings"

	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"
)

// Kind selects an extraction strategy.
type Kind int

const (
	// Identity hands the output on as text.
	Identity Kind = iota
	// JSONArray parses arrays and keeps anything else as text.
	JSONArray
	// JSONObject parses any JSON document.
	JSONObject
	// DesignClass slices the per-operation result array of a class execution.
	DesignClass
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "Identity"
	case JSONArray:
		return "JsonArray"
	case JSONObject:
		return "JsonObject"
	case DesignClass:
		return "DesignClass"
	default:
		return "Unknown"
	}
}

// Extract converts raw output into a phase value. A nil raw stays nil.
func Extract(kind Kind, raw *string, ctx *model.Context) any {
	if raw == nil {
		return nil
	}
	switch kind {
	case JSONArray:
		return extractArray(*raw)
	case JSONObject:
		return extractDocument(*raw)
	case DesignClass:
		return extractOperations(*raw, ctx)
	default:
		return jsonval.Raw(*raw)
	}
}

func extractArray(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return jsonval.Raw(raw)
	}
	v, ok := jsonval.Parse(raw)
	if !ok {
		return jsonval.Raw(raw)
	}
	if arr, isArray := jsonval.Array(v); isArray {
		return arr
	}
	return jsonval.Raw(raw)
}

func extractDocument(raw string) any {
	v, ok := jsonval.Parse(raw)
	if !ok {
		return jsonval.Raw(raw)
	}
	return v
}

// extractOperations reads [opResult0, opResult1, ...]. ROUND_TRIP keeps the
// final result only; STATEFUL_SEQUENCE drops the constructor slot.
func extractOperations(raw string, ctx *model.Context) any {
	if strings.TrimSpace(raw) == "" {
		return jsonval.Raw(raw)
	}
	v, ok := jsonval.Parse(raw)
	if !ok {
		return jsonval.Raw(raw)
	}
	ops, isArray := jsonval.Array(v)
	if !isArray || len(ops) == 0 {
		return jsonval.Raw(raw)
	}

	switch {
	case ctx != nil && ctx.HasHint(model.HintRoundTrip):
		return jsonval.Lift(ops[len(ops)-1])
	case ctx != nil && ctx.HasHint(model.HintStatefulSequence):
		rest := make([]any, len(ops)-1)
		copy(rest, ops[1:])
		return rest
	default:
		return ops
	}
}
