// Package comparator decides whether two normalized outputs are equivalent.
package comparator

import (
	"strings"

	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"
	"algojudge/internal/judging/traversal"
)

// Kind selects a comparison strategy.
type Kind int

const (
	// ExactMatch compares text first and falls back to parsed JSON.
	ExactMatch Kind = iota
	// JSONDeep compares parsed JSON documents structurally.
	JSONDeep
	// SetEquality compares collections already sorted by normalization.
	SetEquality
	// StructuralTree compares level-order arrays as binary trees.
	StructuralTree
)

func (k Kind) String() string {
	switch k {
	case ExactMatch:
		return "ExactMatch"
	case JSONDeep:
		return "JsonDeep"
	case SetEquality:
		return "SetEquality"
	case StructuralTree:
		return "StructuralTree"
	default:
		return "Unknown"
	}
}

// Compare runs the comparison selected by kind.
func Compare(kind Kind, user, oracle any, _ *model.Context) model.Outcome {
	switch kind {
	case JSONDeep:
		return compareDocuments(user, oracle, false)
	case SetEquality:
		return compareDocuments(user, oracle, true)
	case StructuralTree:
		return compareTrees(user, oracle)
	default:
		return compareExact(user, oracle)
	}
}

func nullMismatch(user, oracle any) model.Outcome {
	return model.Failf("Null mismatch: actual=%s, expected=%s", jsonval.Display(user), jsonval.Display(oracle))
}

// textOrJSONEqual compares trimmed text and then parsed documents.
func textOrJSONEqual(user, oracle any) bool {
	u, _ := jsonval.Text(user)
	o, _ := jsonval.Text(oracle)
	u, o = strings.TrimSpace(u), strings.TrimSpace(o)
	if u == o {
		return true
	}
	uv, uok := jsonval.Parse(u)
	ov, ook := jsonval.Parse(o)
	return uok && ook && jsonval.Equal(uv, ov)
}

func compareExact(user, oracle any) model.Outcome {
	if user == nil || oracle == nil {
		if user == nil && oracle == nil {
			return model.Pass()
		}
		return nullMismatch(user, oracle)
	}
	if textOrJSONEqual(user, oracle) {
		return model.Pass()
	}
	return model.Fail("Output mismatch")
}

func isDocument(v any) bool {
	if v == nil {
		return false
	}
	_, isText := v.(jsonval.Raw)
	return !isText
}

// compareDocuments backs both JSONDeep and SetEquality. The set variant only
// adds a size check and its own wording; sorted collections compare
// element-wise either way.
func compareDocuments(user, oracle any, set bool) model.Outcome {
	if isDocument(user) && isDocument(oracle) {
		if set {
			ua, uok := jsonval.Array(user)
			oa, ook := jsonval.Array(oracle)
			if uok && ook && len(ua) != len(oa) {
				return model.Failf("Set size mismatch: got %d, expected %d", len(ua), len(oa))
			}
		}
		if jsonval.Equal(user, oracle) {
			return model.Pass()
		}
		if set {
			return model.Fail("Set contents mismatch (elements differ after normalization)")
		}
		return model.Fail("Output mismatch (JSON deep comparison)")
	}

	if user == nil || oracle == nil {
		if user == nil && oracle == nil {
			return model.Pass()
		}
		return nullMismatch(user, oracle)
	}
	if textOrJSONEqual(user, oracle) {
		return model.Pass()
	}
	if set {
		return model.Fail("Set contents mismatch")
	}
	return model.Fail("Output mismatch")
}

func levelOrder(v any) ([]any, bool) {
	decoded, ok := jsonval.Decode(v)
	if !ok {
		return nil, false
	}
	return jsonval.Array(decoded)
}

func compareTrees(user, oracle any) model.Outcome {
	ua, uok := levelOrder(user)
	oa, ook := levelOrder(oracle)
	if !uok || !ook {
		u, uHas := jsonval.Text(user)
		o, oHas := jsonval.Text(oracle)
		if uHas == oHas && strings.TrimSpace(u) == strings.TrimSpace(o) {
			return model.Pass()
		}
		return model.Fail("Cannot parse tree output for structural comparison")
	}

	userTree := traversal.BuildTree(ua)
	oracleTree := traversal.BuildTree(oa)
	userCount := traversal.CountNodes(userTree)
	oracleCount := traversal.CountNodes(oracleTree)
	if userCount != oracleCount {
		return model.Failf("Tree size mismatch: got %d nodes, expected %d", userCount, oracleCount)
	}
	if !traversal.StructurallyEqual(userTree, oracleTree) {
		return model.Fail("Tree structure mismatch")
	}
	return model.Pass()
}
