// Package normalizer canonicalizes extracted values so that equivalent
// outputs become structurally equal.
package normalizer

import (
	"slices"
	"strings"

	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"
)

// Kind selects a normalization strategy.
type Kind int

const (
	Identity Kind = iota
	// CharMatrix expands string rows of a character grid into single
	// character cells.
	CharMatrix
	SortedList
	SortedNestedList
	// Edge orients each [a,b] edge and sorts the edge list.
	Edge
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "Identity"
	case CharMatrix:
		return "CharMatrix"
	case SortedList:
		return "SortedList"
	case SortedNestedList:
		return "SortedNestedList"
	case Edge:
		return "Edge"
	default:
		return "Unknown"
	}
}

// Normalize returns the canonical form of v. The input is never modified.
func Normalize(kind Kind, v any, _ *model.Context) any {
	switch kind {
	case CharMatrix:
		return charMatrix(v)
	case SortedList:
		if arr, ok := jsonval.Array(v); ok {
			return sortByCanonical(arr)
		}
		return v
	case SortedNestedList:
		if arr, ok := jsonval.Array(v); ok {
			return sortNested(arr)
		}
		return v
	case Edge:
		if arr, ok := jsonval.Array(v); ok {
			return sortEdges(arr)
		}
		return v
	default:
		return v
	}
}

func charMatrix(v any) any {
	decoded, ok := jsonval.Decode(v)
	if !ok {
		return v
	}
	rows, ok := jsonval.Array(decoded)
	if !ok {
		return v
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		s, isString := row.(string)
		if !isString {
			out[i] = row
			continue
		}
		cells := make([]any, 0, len(s))
		for _, r := range s {
			cells = append(cells, string(r))
		}
		out[i] = cells
	}
	return out
}

// sortByCanonical returns a copy of values ordered by their canonical
// serialization.
func sortByCanonical(values []any) []any {
	type keyed struct {
		key   string
		value any
	}
	items := make([]keyed, len(values))
	for i, v := range values {
		items[i] = keyed{key: jsonval.Canonical(v), value: v}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return strings.Compare(a.key, b.key)
	})
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it.value
	}
	return out
}

func sortNested(outer []any) []any {
	inner := make([]any, len(outer))
	for i, elem := range outer {
		if arr, ok := jsonval.Array(elem); ok {
			inner[i] = sortByCanonical(arr)
			continue
		}
		inner[i] = []any{elem}
	}
	return sortByCanonical(inner)
}

func sortEdges(edges []any) []any {
	out := make([]any, len(edges))
	for i, e := range edges {
		arr, ok := jsonval.Array(e)
		switch {
		case !ok:
			out[i] = e
		case len(arr) == 2:
			out[i] = orientEdge(arr[0], arr[1])
		default:
			out[i] = slices.Clone(arr)
		}
	}
	return sortByCanonical(out)
}

// orientEdge puts the smaller endpoint first. Integer endpoints compare
// numerically, anything else by canonical text.
func orientEdge(a, b any) []any {
	ai, aok := jsonval.AsInt(a)
	bi, bok := jsonval.AsInt(b)
	if aok && bok {
		if ai > bi {
			return []any{b, a}
		}
		return []any{a, b}
	}
	if jsonval.Canonical(a) > jsonval.Canonical(b) {
		return []any{b, a}
	}
	return []any{a, b}
}
