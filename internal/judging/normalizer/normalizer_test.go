package normalizer

import (
	"testing"

	"algojudge/internal/judging/jsonval"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, text string) any {
	t.Helper()
	v, ok := jsonval.Parse(text)
	if !ok {
		t.Fatalf("parse %q failed", text)
	}
	return v
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		input any
		want  string
	}{
		{"identity", Identity, jsonval.Raw("[3,1]"), "[3,1]"},
		{"sorted list", SortedList, mustParse(t, "[3,1,2]"), "[1,2,3]"},
		{"sorted list mixed", SortedList, mustParse(t, `["b",1,[0],"a"]`), `["a","b",1,[0]]`},
		{"sorted list scalar passthrough", SortedList, jsonval.Raw("x"), "x"},
		{"nested", SortedNestedList, mustParse(t, "[[3,1],[2],[1,0]]"), "[[0,1],[1,3],[2]]"},
		{"nested wraps scalar", SortedNestedList, mustParse(t, "[[2,1],5]"), "[[1,2],[5]]"},
		{"edges", Edge, mustParse(t, "[[3,1],[2,0],[1,2]]"), "[[0,2],[1,2],[1,3]]"},
		{"edge with odd entry", Edge, mustParse(t, "[[4,3,1],[2,1]]"), "[[1,2],[4,3,1]]"},
		{"edge non numeric", Edge, mustParse(t, `[["b","a"]]`), `[["a","b"]]`},
		{"char matrix strings", CharMatrix, mustParse(t, `["ab","cd"]`), `[["a","b"],["c","d"]]`},
		{"char matrix from text", CharMatrix, jsonval.Raw(`["ab",["c","d"]]`), `[["a","b"],["c","d"]]`},
		{"char matrix unparseable", CharMatrix, jsonval.Raw("ab"), "ab"},
		{"char matrix scalar", CharMatrix, mustParse(t, "1"), "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jsonval.Canonical(Normalize(tt.kind, tt.input, nil))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Normalize(%s) mismatch (-want +got):\n%s", tt.kind, diff)
			}
		})
	}
}

func TestNormalizeAbsent(t *testing.T) {
	for _, kind := range []Kind{Identity, CharMatrix, SortedList, SortedNestedList, Edge} {
		if got := Normalize(kind, nil, nil); got != nil {
			t.Errorf("%s: absent normalized to %#v", kind, got)
		}
	}
}

func TestSortedListPermutations(t *testing.T) {
	perms := []string{"[1,2,3]", "[3,2,1]", "[2,3,1]", "[1,3,2]"}
	want := Normalize(SortedList, mustParse(t, perms[0]), nil)
	for _, p := range perms[1:] {
		got := Normalize(SortedList, mustParse(t, p), nil)
		if !jsonval.Equal(want, got) {
			t.Errorf("permutation %s normalized to %s", p, jsonval.Canonical(got))
		}
	}
}

func TestSortedNestedListIdempotent(t *testing.T) {
	inputs := []string{"[[3,1],[2],[1,0]]", `[["b","a"],[],["c"]]`, "[[1],[1],[0,0]]"}
	for _, in := range inputs {
		once := Normalize(SortedNestedList, mustParse(t, in), nil)
		twice := Normalize(SortedNestedList, once, nil)
		if diff := cmp.Diff(jsonval.Canonical(once), jsonval.Canonical(twice)); diff != "" {
			t.Errorf("not idempotent for %s (-once +twice):\n%s", in, diff)
		}
	}
}

func TestEdgeOrientationSymmetric(t *testing.T) {
	pairs := [][2]string{{"[[1,2]]", "[[2,1]]"}, {"[[10,9]]", "[[9,10]]"}, {"[[-1,0]]", "[[0,-1]]"}}
	for _, p := range pairs {
		a := Normalize(Edge, mustParse(t, p[0]), nil)
		b := Normalize(Edge, mustParse(t, p[1]), nil)
		if !jsonval.Equal(a, b) {
			t.Errorf("edge %s and %s normalize differently: %s vs %s", p[0], p[1], jsonval.Canonical(a), jsonval.Canonical(b))
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	input := mustParse(t, "[[3,1],[2,0]]")
	before := jsonval.Canonical(input)
	for _, kind := range []Kind{SortedList, SortedNestedList, Edge} {
		Normalize(kind, input, nil)
	}
	if after := jsonval.Canonical(input); after != before {
		t.Fatalf("input mutated: %s -> %s", before, after)
	}
}
