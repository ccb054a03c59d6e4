// Package judging assembles and runs the per-question judging pipeline.
package judging

import (
	"strings"

	"algojudge/internal/judging/comparator"
	"algojudge/internal/judging/extractor"
	"algojudge/internal/judging/model"
	"algojudge/internal/judging/normalizer"
	"algojudge/internal/judging/validator"
)

// Assemble selects one strategy per phase for ctx. Each phase is chosen on
// its own; validators accumulate in registration order.
func Assemble(ctx *model.Context) *Pipeline {
	return &Pipeline{
		extractor:  selectExtractor(ctx),
		normalizer: selectNormalizer(ctx),
		comparator: selectComparator(ctx),
		validators: selectValidators(ctx),
	}
}

func selectExtractor(ctx *model.Context) extractor.Kind {
	switch {
	case ctx.IsClass():
		return extractor.DesignClass
	case ctx.NodeType == model.NodeTree, ctx.NodeType == model.NodeList:
		return extractor.JSONArray
	case isListType(ctx.EffectiveOutputType):
		return extractor.JSONArray
	default:
		return extractor.Identity
	}
}

func selectNormalizer(ctx *model.Context) normalizer.Kind {
	if ctx.EffectiveOutputType == "char[][]" {
		return normalizer.CharMatrix
	}
	if !ctx.Unordered() {
		return normalizer.Identity
	}
	switch {
	case ctx.NodeType == model.NodeGraph, strings.Contains(strings.ToLower(ctx.ReturnType), "edge"):
		return normalizer.Edge
	case isNestedListType(ctx.EffectiveOutputType):
		return normalizer.SortedNestedList
	case isListType(ctx.EffectiveOutputType):
		return normalizer.SortedList
	default:
		return normalizer.Identity
	}
}

func selectComparator(ctx *model.Context) comparator.Kind {
	switch {
	case ctx.NodeType == model.NodeTree:
		return comparator.StructuralTree
	case ctx.Unordered():
		return comparator.SetEquality
	case ctx.IsClass(), isListType(ctx.EffectiveOutputType):
		return comparator.JSONDeep
	default:
		return comparator.ExactMatch
	}
}

var hintValidators = []struct {
	hint model.Hint
	kind validator.Kind
}{
	{model.HintLinearForm, validator.LinkedListShape},
	{model.HintSudokuRules, validator.SudokuConstraint},
	{model.HintRequireDeepCopy, validator.DeepCopy},
}

func selectValidators(ctx *model.Context) []validator.Kind {
	var kinds []validator.Kind
	if ctx.NodeType == model.NodeList || ctx.NodeType == model.NodeTree {
		kinds = append(kinds, validator.StructuralSafety)
	}
	for _, hv := range hintValidators {
		if ctx.HasHint(hv.hint) {
			kinds = append(kinds, hv.kind)
		}
	}
	if ctx.IsClass() {
		kinds = append(kinds, validator.DesignClassSize)
	}
	return kinds
}

func isListType(t string) bool {
	lower := strings.ToLower(strings.TrimSpace(t))
	return strings.HasPrefix(lower, "list") ||
		strings.HasSuffix(lower, "[]") ||
		strings.Contains(lower, "array")
}

func isNestedListType(t string) bool {
	lower := strings.ToLower(strings.ReplaceAll(t, " ", ""))
	return strings.Contains(lower, "list<list") || strings.Contains(lower, "[][]")
}
