// Package validator enforces structural and domain constraints that value
// equality alone cannot express.
package validator

import (
	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"
)

// Stage is the point in the pipeline at which a validator runs.
type Stage int

const (
	// PreCompare validators gate the comparison.
	PreCompare Stage = iota
	// PostCompare validators run only after a passing comparison and may
	// overturn it.
	PostCompare
)

func (s Stage) String() string {
	if s == PostCompare {
		return "POST_COMPARE"
	}
	return "PRE_COMPARE"
}

// Kind selects a validator.
type Kind int

const (
	StructuralSafety Kind = iota
	DesignClassSize
	LinkedListShape
	SudokuConstraint
	DeepCopy
)

func (k Kind) String() string {
	switch k {
	case StructuralSafety:
		return "StructuralSafety"
	case DesignClassSize:
		return "DesignClassSize"
	case LinkedListShape:
		return "LinkedListShape"
	case SudokuConstraint:
		return "SudokuConstraint"
	case DeepCopy:
		return "DeepCopy"
	default:
		return "Unknown"
	}
}

// Stage reports when the validator runs.
func (k Kind) Stage() Stage {
	switch k {
	case StructuralSafety, DesignClassSize:
		return PreCompare
	default:
		return PostCompare
	}
}

// Input carries both sides of a test case. Raw fields hold the captured text,
// User and Oracle the values of the current phase.
type Input struct {
	UserRaw   *string
	OracleRaw *string
	User      any
	Oracle    any
}

// Validate runs the validator selected by kind.
func Validate(kind Kind, in Input, ctx *model.Context) model.Outcome {
	switch kind {
	case StructuralSafety:
		return checkStructuralSafety(in.User, ctx)
	case DesignClassSize:
		return checkOperationCount(in, ctx)
	case LinkedListShape:
		return checkLinkedListShape(in.User)
	case SudokuConstraint:
		return checkSudoku(in.User)
	case DeepCopy:
		return checkDeepCopy(in.User)
	default:
		return model.Pass()
	}
}

func decodedArray(v any) ([]any, bool) {
	decoded, ok := jsonval.Decode(v)
	if !ok {
		return nil, false
	}
	return jsonval.Array(decoded)
}

func rawArray(raw *string) ([]any, bool) {
	if raw == nil {
		return nil, false
	}
	v, ok := jsonval.Parse(*raw)
	if !ok {
		return nil, false
	}
	return jsonval.Array(v)
}

// checkOperationCount compares the number of operation results before
// extraction trims them.
func checkOperationCount(in Input, ctx *model.Context) model.Outcome {
	if ctx == nil || !ctx.IsClass() {
		return model.Pass()
	}
	userOps, uok := rawArray(in.UserRaw)
	oracleOps, ook := rawArray(in.OracleRaw)
	if !uok || !ook {
		return model.Pass()
	}
	if len(userOps) != len(oracleOps) {
		return model.Failf("Operation count mismatch: your class produced %d results, expected %d", len(userOps), len(oracleOps))
	}
	return model.Pass()
}
