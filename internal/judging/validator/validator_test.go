package validator

import (
	"fmt"
	"strings"
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

func repeatArray(elem string, n int) string {
	return "[" + strings.TrimSuffix(strings.Repeat(elem+",", n), ",") + "]"
}

func grid(rows ...string) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, ch := range row {
			cells[j] = string(ch)
		}
		parts[i] = "[" + strings.Join(cells, ",") + "]"
	}
	return "[" + strings.Join(parts, ",") + "]"
}

var solved = []string{
	"534678912",
	"672195348",
	"198342567",
	"859761423",
	"426853791",
	"713924856",
	"961537284",
	"287419635",
	"345286179",
}

func withRow(r int, row string) []string {
	out := append([]string(nil), solved...)
	out[r] = row
	return out
}

func shiftedLatinSquare() string {
	rows := make([]string, 9)
	for r := 0; r < 9; r++ {
		var b strings.Builder
		for c := 0; c < 9; c++ {
			fmt.Fprintf(&b, "%d", (r+c)%9+1)
		}
		rows[r] = b.String()
	}
	return grid(rows...)
}

func TestStage(t *testing.T) {
	want := map[Kind]Stage{
		StructuralSafety: PreCompare,
		DesignClassSize:  PreCompare,
		LinkedListShape:  PostCompare,
		SudokuConstraint: PostCompare,
		DeepCopy:         PostCompare,
	}
	for kind, stage := range want {
		if kind.Stage() != stage {
			t.Errorf("%s.Stage() = %s, want %s", kind, kind.Stage(), stage)
		}
	}
}

func TestStructuralSafety(t *testing.T) {
	listCtx := &model.Context{NodeType: model.NodeList}
	treeCtx := &model.Context{NodeType: model.NodeTree}
	tests := []struct {
		name string
		ctx  *model.Context
		user any
		want model.Outcome
	}{
		{"list ok", listCtx, doc(t, "[1,2,3]"), model.Pass()},
		{"list too long", listCtx, doc(t, repeatArray("1", 10001)), model.Fail("List output exceeds maximum safe size (10000 elements). Possible cycle in output.")},
		{"list repeating", listCtx, doc(t, repeatArray("4", 50)), model.Fail("List output contains suspicious repeating pattern. Possible cycle in output.")},
		{"list short repeat", listCtx, doc(t, repeatArray("4", 49)), model.Pass()},
		{"tree too large", treeCtx, doc(t, repeatArray("1", 10001)), model.Fail("Tree output exceeds maximum safe size (10000 elements). Possible structural issue.")},
		{"tree repeats allowed", treeCtx, doc(t, repeatArray("1", 60)), model.Pass()},
		{"not json", listCtx, jsonval.Raw("garbage"), model.Pass()},
		{"other node type", &model.Context{}, doc(t, repeatArray("1", 10001)), model.Pass()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(StructuralSafety, Input{User: tt.user}, tt.ctx)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestDesignClassSize(t *testing.T) {
	classCtx := &model.Context{Strategy: model.StrategyClass}
	tests := []struct {
		name   string
		ctx    *model.Context
		user   *string
		oracle *string
		want   model.Outcome
	}{
		{"same count", classCtx, strPtr("[null,1,2]"), strPtr("[null,3,4]"), model.Pass()},
		{"diverged", classCtx, strPtr("[null,1]"), strPtr("[null,1,2]"), model.Fail("Operation count mismatch: your class produced 2 results, expected 3")},
		{"not array", classCtx, strPtr("crash"), strPtr("[null]"), model.Pass()},
		{"absent", classCtx, nil, strPtr("[null]"), model.Pass()},
		{"function strategy", &model.Context{}, strPtr("[1]"), strPtr("[1,2]"), model.Pass()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(DesignClassSize, Input{UserRaw: tt.user, OracleRaw: tt.oracle}, tt.ctx)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLinkedListShape(t *testing.T) {
	tests := []struct {
		name string
		user any
		pass bool
	}{
		{"right chain", doc(t, "[1,null,2,null,3]"), true},
		{"left child", doc(t, "[1,2,null]"), false},
		{"empty", doc(t, "[]"), true},
		{"not array", jsonval.Raw("abc"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(LinkedListShape, Input{User: tt.user}, nil)
			if got.Passed != tt.pass {
				t.Fatalf("Passed = %v, want %v (%s)", got.Passed, tt.pass, got.Reason)
			}
		})
	}
}

func TestSudokuConstraint(t *testing.T) {
	tests := []struct {
		name string
		user any
		want model.Outcome
	}{
		{"solved", doc(t, grid(solved...)), model.Pass()},
		{"solved char cells", doc(t, `[`+strings.Join(quotedRows(solved), ",")+`]`), model.Pass()},
		{"row duplicate", doc(t, grid(withRow(0, "554678912")...)), model.Fail("Duplicate 5 in row 0")},
		{"column duplicate", doc(t, grid(withRow(0, "354678912")...)), model.Fail("Duplicate 3 in column 0")},
		{"box duplicate", doc(t, shiftedLatinSquare()), model.Fail("Duplicate 2 in box (0,0)")},
		{"zero cell", doc(t, grid(withRow(2, "198342560")...)), model.Fail("Invalid digit at (2,8): 0")},
		{"short row", doc(t, grid(withRow(4, "42685379")...)), model.Fail("Sudoku row 4 must have 9 elements")},
		{"wrong rows", doc(t, "[[1]]"), model.Fail("Sudoku output must be a 9x9 grid (got invalid format)")},
		{"not json", jsonval.Raw("nope"), model.Fail("Sudoku output must be a 9x9 grid (got invalid format)")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(SudokuConstraint, Input{User: tt.user}, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func quotedRows(rows []string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, ch := range row {
			cells[j] = fmt.Sprintf("%q", string(ch))
		}
		out[i] = "[" + strings.Join(cells, ",") + "]"
	}
	return out
}

func TestDeepCopy(t *testing.T) {
	tests := []struct {
		name string
		user any
		want model.Outcome
	}{
		{"symmetric", doc(t, "[[2],[1,3],[2]]"), model.Pass()},
		{"asymmetric", doc(t, "[[2],[3],[2]]"), model.Fail("Deep copy validation failed: edge from node 1 to node 2 is not bidirectional (not an undirected graph)")},
		{"out of range", doc(t, "[[5]]"), model.Fail("Deep copy validation failed: node 1 references invalid neighbour 5 (valid range: 1-1)")},
		{"empty", doc(t, "[]"), model.Fail("Deep copy validation failed: output graph is empty")},
		{"absent", nil, model.Fail("Deep copy validation failed: user output is null")},
		{"unparseable skipped", jsonval.Raw("{"), model.Pass()},
		{"wrong shape skipped", doc(t, `[["a"]]`), model.Pass()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(DeepCopy, Input{User: tt.user}, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
