package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"algojudge/internal/common/db"
	"algojudge/internal/judging/model"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"

	"github.com/google/go-cmp/cmp"
)

func metadataRow() fakeRow {
	return fakeRow{values: []interface{}{
		int64(12), "JAVA", "reverseList", "ListNode",
		`["head"]`, `["ListNode"]`,
		nil, "LINKED_LIST", nil,
		"SINGLY_LINKED", true, "FUNCTION", "CYCLE_SAFE",
	}}
}

func TestGetMetadataCachesRow(t *testing.T) {
	c, _ := newTestCache(t)
	fdb := &fakeDB{queryRow: func(string, []interface{}) db.Row { return metadataRow() }}
	repo := NewQuestionRepository(fdb, c)
	ctx := context.Background()

	orderMatters := true
	want := model.QuestionMetadata{
		QuestionID:            12,
		Language:              "JAVA",
		FunctionName:          "reverseList",
		ReturnType:            "ListNode",
		ParamNames:            []string{"head"},
		ParamTypes:            []string{"ListNode"},
		NodeType:              "SINGLY_LINKED",
		OrderMatters:          &orderMatters,
		ExecutionStrategy:     "FUNCTION",
		ValidationHints:       "CYCLE_SAFE",
		SerializationStrategy: "LINKED_LIST",
	}
	for i := 0; i < 2; i++ {
		got, err := repo.GetMetadata(ctx, 12, "java")
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
		}
	}
	if n := fdb.callCount(); n != 1 {
		t.Fatalf("expected one database read, got %d", n)
	}
	if args := fdb.lastCall().args; args[1] != "JAVA" {
		t.Fatalf("language should be normalised, got %v", args[1])
	}
}

func TestGetMetadataMissing(t *testing.T) {
	c, mr := newTestCache(t)
	fdb := &fakeDB{}
	repo := NewQuestionRepository(fdb, c)

	for i := 0; i < 2; i++ {
		_, err := repo.GetMetadata(context.Background(), 5, "PYTHON")
		if !pkgerrors.Is(err, pkgerrors.QuestionMetadataNotFound) {
			t.Fatalf("expected QuestionMetadataNotFound, got %v", err)
		}
	}
	if n := fdb.callCount(); n != 1 {
		t.Fatalf("miss should be cached, got %d reads", n)
	}
	if !mr.Exists(metadataKey(5, "PYTHON")) {
		t.Fatalf("expected null marker in cache")
	}
}

func TestGetMetadataDatabaseError(t *testing.T) {
	fdb := &fakeDB{queryRow: func(string, []interface{}) db.Row { return fakeRow{err: errors.New("conn reset")} }}
	_, err := NewQuestionRepository(fdb, nil).GetMetadata(context.Background(), 1, "JAVA")
	if !pkgerrors.Is(err, pkgerrors.DatabaseError) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}
}

func TestGetTestCases(t *testing.T) {
	fdb := &fakeDB{query: func(q string, args []interface{}) (db.Rows, error) {
		return &fakeRows{data: [][]interface{}{
			{int64(1), int64(3), `{"n":1}`, "HIDDEN"},
			{int64(2), int64(3), `{"n":2}`, "HIDDEN"},
		}}, nil
	}}
	cases, err := NewQuestionRepository(fdb, nil).GetTestCases(context.Background(), 3, submodel.TestCaseHidden)
	if err != nil {
		t.Fatalf("GetTestCases failed: %v", err)
	}
	want := []submodel.TestCase{
		{ID: 1, QuestionID: 3, Input: `{"n":1}`, Type: submodel.TestCaseHidden},
		{ID: 2, QuestionID: 3, Input: `{"n":2}`, Type: submodel.TestCaseHidden},
	}
	if diff := cmp.Diff(want, cases); diff != "" {
		t.Fatalf("cases mismatch (-want +got):\n%s", diff)
	}
	if args := fdb.lastCall().args; args[1] != "HIDDEN" {
		t.Fatalf("type filter = %v", args[1])
	}
}

func TestGetReferenceSolution(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		fdb := &fakeDB{queryRow: func(string, []interface{}) db.Row {
			return fakeRow{values: []interface{}{int64(9), "java", "class Solution {}"}}
		}}
		got, err := NewQuestionRepository(fdb, nil).GetReferenceSolution(context.Background(), 9)
		if err != nil {
			t.Fatalf("GetReferenceSolution failed: %v", err)
		}
		if got.Language != submodel.LanguageJava || got.SourceCode != "class Solution {}" {
			t.Fatalf("unexpected solution %+v", got)
		}
	})
	t.Run("missing", func(t *testing.T) {
		fdb := &fakeDB{queryRow: func(string, []interface{}) db.Row { return fakeRow{err: sql.ErrNoRows} }}
		_, err := NewQuestionRepository(fdb, nil).GetReferenceSolution(context.Background(), 9)
		if !pkgerrors.Is(err, pkgerrors.RecordNotFound) {
			t.Fatalf("expected RecordNotFound, got %v", err)
		}
	})
}
