package comparator

import (
	"testing"

	"algojudge/internal/judging/jsonval"
	"algojudge/internal/judging/model"

	"github.com/google/go-cmp/cmp"
)

func doc(t *testing.T, text string) any {
	t.Helper()
	v, ok := jsonval.Parse(text)
	if !ok {
		t.Fatalf("parse %q failed", text)
	}
	return v
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		user   any
		oracle any
		want   model.Outcome
	}{
		{"exact equal text", ExactMatch, jsonval.Raw(" 42\n"), jsonval.Raw("42"), model.Pass()},
		{"exact json equal", ExactMatch, jsonval.Raw(`{"a":1, "b":2}`), jsonval.Raw(`{"b":2,"a":1}`), model.Pass()},
		{"exact mismatch", ExactMatch, jsonval.Raw("41"), jsonval.Raw("42"), model.Fail("Output mismatch")},
		{"exact text mismatch", ExactMatch, jsonval.Raw("abc"), jsonval.Raw("abd"), model.Fail("Output mismatch")},
		{"exact both absent", ExactMatch, nil, nil, model.Pass()},
		{"exact user absent", ExactMatch, nil, jsonval.Raw("1"), model.Fail("Null mismatch: actual=null, expected=1")},

		{"deep equal", JSONDeep, doc(t, "[1,[2,3]]"), doc(t, "[1,[2,3]]"), model.Pass()},
		{"deep numbers by value", JSONDeep, doc(t, "[1.0]"), doc(t, "[1]"), model.Pass()},
		{"deep mismatch", JSONDeep, doc(t, "[1,2]"), doc(t, "[2,1]"), model.Fail("Output mismatch (JSON deep comparison)")},
		{"deep text fallback", JSONDeep, jsonval.Raw("oops"), jsonval.Raw(" oops "), model.Pass()},
		{"deep text vs doc", JSONDeep, jsonval.Raw("[1, 2]"), doc(t, "[1,2]"), model.Pass()},
		{"deep fallback mismatch", JSONDeep, jsonval.Raw("oops"), doc(t, "[1]"), model.Fail("Output mismatch")},
		{"deep absent", JSONDeep, doc(t, "[1]"), nil, model.Fail("Null mismatch: actual=[1], expected=null")},
		{"deep top-level null vs absent", JSONDeep, jsonval.Null{}, nil, model.Fail("Null mismatch: actual=null, expected=null")},

		{"set equal", SetEquality, doc(t, "[1,2,3]"), doc(t, "[1,2,3]"), model.Pass()},
		{"set size", SetEquality, doc(t, "[1,2]"), doc(t, "[1,2,3]"), model.Fail("Set size mismatch: got 2, expected 3")},
		{"set contents", SetEquality, doc(t, "[1,2,4]"), doc(t, "[1,2,3]"), model.Fail("Set contents mismatch (elements differ after normalization)")},
		{"set text fallback", SetEquality, jsonval.Raw("x"), jsonval.Raw("y"), model.Fail("Set contents mismatch")},

		{"tree trailing nulls", StructuralTree, doc(t, "[1,2,3]"), doc(t, "[1,2,3,null,null]"), model.Pass()},
		{"tree size", StructuralTree, doc(t, "[1,2]"), doc(t, "[1,2,3]"), model.Fail("Tree size mismatch: got 2 nodes, expected 3")},
		{"tree shape", StructuralTree, doc(t, "[1,2]"), doc(t, "[1,null,2]"), model.Fail("Tree structure mismatch")},
		{"tree from text", StructuralTree, jsonval.Raw("[1, null, 2]"), doc(t, "[1,null,2]"), model.Pass()},
		{"tree unparseable equal", StructuralTree, jsonval.Raw("bad"), jsonval.Raw("bad"), model.Pass()},
		{"tree unparseable", StructuralTree, jsonval.Raw("bad"), doc(t, "[1]"), model.Fail("Cannot parse tree output for structural comparison")},
		{"tree empty", StructuralTree, doc(t, "[]"), doc(t, "[null]"), model.Pass()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.kind, tt.user, tt.oracle, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Compare(%s) mismatch (-want +got):\n%s", tt.kind, diff)
			}
		})
	}
}
