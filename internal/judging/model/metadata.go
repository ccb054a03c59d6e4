package model

import (
	"strconv"
	"strings"

	pkgerrors "algojudge/pkg/errors"
)

// QuestionMetadata is the stored description of a question for one language.
type QuestionMetadata struct {
	QuestionID        int64    `json:"questionId"`
	Language          string   `json:"language"`
	FunctionName      string   `json:"functionName"`
	ReturnType        string   `json:"returnType"`
	ParamNames        []string `json:"paramNames"`
	ParamTypes        []string `json:"paramTypes"`
	NodeType          string   `json:"nodeType"`
	OrderMatters      *bool    `json:"isOutputOrderMatters"`
	ExecutionStrategy string   `json:"executionStrategy"`
	MutationTarget    string   `json:"mutationTarget"`
	ValidationHints   string   `json:"validationHints"`

	// Passed through to the execution engine; judging ignores them.
	SerializationStrategy string `json:"serializationStrategy,omitempty"`
	QuestionType          string `json:"questionType,omitempty"`
}

// BuildContext resolves the judging context of a question.
func BuildContext(meta QuestionMetadata) (*Context, error) {
	hints := ParseHints(meta.ValidationHints)
	if hints.Contains(HintRoundTrip, HintStatefulSequence) {
		return nil, pkgerrors.New(pkgerrors.InvalidJudgingContext).
			WithMessagef("question %d declares both %s and %s", meta.QuestionID, HintRoundTrip, HintStatefulSequence).
			WithDetail("questionId", meta.QuestionID)
	}

	return &Context{
		QuestionID:          meta.QuestionID,
		ReturnType:          meta.ReturnType,
		EffectiveOutputType: EffectiveOutputType(meta.ReturnType, meta.ParamTypes, meta.MutationTarget),
		NodeType:            ParseNodeType(meta.NodeType),
		OrderMatters:        meta.OrderMatters,
		Strategy:            ParseStrategy(meta.ExecutionStrategy),
		MutationTarget:      strings.TrimSpace(meta.MutationTarget),
		Hints:               hints,
	}, nil
}

// EffectiveOutputType returns the serialized shape of a call's result. Void
// functions report the type of the parameter they mutate.
func EffectiveOutputType(returnType string, paramTypes []string, mutationTarget string) string {
	if !strings.EqualFold(strings.TrimSpace(returnType), "void") {
		return returnType
	}
	if target := strings.TrimSpace(mutationTarget); target != "" {
		if idx, err := strconv.Atoi(target); err == nil && idx >= 0 && idx < len(paramTypes) {
			return paramTypes[idx]
		}
	}
	if len(paramTypes) == 1 {
		return paramTypes[0]
	}
	return returnType
}
