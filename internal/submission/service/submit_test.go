package service

import (
	"context"
	"strings"
	"testing"

	"algojudge/internal/judging/verdict"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"

	"github.com/google/go-cmp/cmp"
)

type submitDeps struct {
	submissions *fakeSubmissions
	statuses    *fakeStatuses
	producer    *fakeProducer
	archive     *fakeArchive
}

func newTestSubmitService(t *testing.T, deps *submitDeps) *SubmitService {
	t.Helper()
	if deps.submissions == nil {
		deps.submissions = newFakeSubmissions()
	}
	if deps.statuses == nil {
		deps.statuses = &fakeStatuses{}
	}
	if deps.producer == nil {
		deps.producer = &fakeProducer{}
	}
	cfg := SubmitConfig{
		Submissions:  deps.submissions,
		Statuses:     deps.statuses,
		Producer:     deps.producer,
		Topic:        "judge.submissions",
		MaxCodeBytes: 64,
	}
	if deps.archive != nil {
		cfg.Archive = deps.archive
	}
	s, err := NewSubmitService(cfg)
	if err != nil {
		t.Fatalf("NewSubmitService failed: %v", err)
	}
	s.now = clock
	return s
}

func submitReq() SubmitRequest {
	return SubmitRequest{
		UserID:     "u1",
		QuestionID: 7,
		Language:   "python",
		Code:       "class Solution: pass",
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl/8",
	}
}

func TestSubmitQueuesSubmission(t *testing.T) {
	deps := &submitDeps{}
	s := newTestSubmitService(t, deps)
	sub, err := s.Submit(context.Background(), submitReq())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sub.SubmissionID == "" || sub.Status != submodel.StatusQueued || sub.Language != submodel.LanguagePython {
		t.Fatalf("submission = %+v", sub)
	}
	if _, ok := deps.submissions.records[sub.SubmissionID]; !ok {
		t.Fatalf("submission not persisted")
	}
	if last := deps.statuses.last(); last.Status != submodel.StatusQueued || last.SubmissionID != sub.SubmissionID {
		t.Fatalf("cached status = %+v", last)
	}

	if diff := cmp.Diff([]string{"judge.submissions"}, deps.producer.topics); diff != "" {
		t.Fatalf("topics mismatch (-want +got):\n%s", diff)
	}
	msg := deps.producer.messages[0]
	if msg.ID != sub.SubmissionID {
		t.Fatalf("message id = %q", msg.ID)
	}
	var payload submodel.SubmissionMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	want := submodel.SubmissionMessage{
		SubmissionID: sub.SubmissionID,
		QuestionID:   7,
		UserID:       "u1",
		Language:     submodel.LanguagePython,
		QueuedAt:     fixedNow,
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
		code   pkgerrors.ErrorCode
	}{
		{"missing question", func(r *SubmitRequest) { r.QuestionID = 0 }, pkgerrors.ValidationFailed},
		{"unsupported language", func(r *SubmitRequest) { r.Language = "ruby" }, pkgerrors.LanguageNotSupported},
		{"blank code", func(r *SubmitRequest) { r.Code = "  \n" }, pkgerrors.ValidationFailed},
		{"code too large", func(r *SubmitRequest) { r.Code = strings.Repeat("x", 65) }, pkgerrors.ValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := &submitDeps{}
			s := newTestSubmitService(t, deps)
			req := submitReq()
			tt.mutate(&req)
			if _, err := s.Submit(context.Background(), req); !pkgerrors.Is(err, tt.code) {
				t.Fatalf("Submit error = %v, want code %d", err, tt.code)
			}
			if len(deps.producer.messages) != 0 {
				t.Fatalf("rejected submission was enqueued")
			}
		})
	}
}

func TestSubmitPublishFailureMarksFailed(t *testing.T) {
	deps := &submitDeps{producer: &fakeProducer{err: pkgerrors.New(pkgerrors.ServiceUnavailable)}}
	s := newTestSubmitService(t, deps)
	if _, err := s.Submit(context.Background(), submitReq()); !pkgerrors.Is(err, pkgerrors.QueueError) {
		t.Fatalf("Submit error = %v, want QueueError", err)
	}
	if len(deps.submissions.failed) != 1 {
		t.Fatalf("expected unqueued submission marked failed")
	}
}

func TestListUserSubmissions(t *testing.T) {
	subs := newFakeSubmissions(
		&submodel.Submission{SubmissionID: "a", UserID: "u1"},
		&submodel.Submission{SubmissionID: "b", UserID: "u2"},
	)
	s := newTestSubmitService(t, &submitDeps{submissions: subs})

	items, total, err := s.ListUserSubmissions(context.Background(), "u1", 0, 0)
	if err != nil {
		t.Fatalf("ListUserSubmissions failed: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].SubmissionID != "a" {
		t.Fatalf("items=%v total=%d", items, total)
	}
	if _, _, err := s.ListUserSubmissions(context.Background(), "u1", -1, 10); !pkgerrors.Is(err, pkgerrors.ValidationFailed) {
		t.Fatalf("negative page = %v", err)
	}
	if _, _, err := s.ListUserSubmissions(context.Background(), "", 0, 10); !pkgerrors.Is(err, pkgerrors.ValidationFailed) {
		t.Fatalf("missing user = %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	statuses := &fakeStatuses{saved: []submodel.StatusSnapshot{{SubmissionID: "a", Status: submodel.StatusRunning}}}
	s := newTestSubmitService(t, &submitDeps{statuses: statuses})
	got, err := s.GetStatus(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if got.Status != submodel.StatusRunning {
		t.Fatalf("Status = %s", got.Status)
	}
	if _, err := s.GetStatus(context.Background(), "missing"); !pkgerrors.Is(err, pkgerrors.SubmissionNotFound) {
		t.Fatalf("GetStatus(missing) = %v", err)
	}
}

func TestGetCaseResults(t *testing.T) {
	stored := `[{"index":0,"passed":true,"time":12,"output":"3"},{"index":1,"passed":false,"time":8,"output":"4"}]`
	subs := newFakeSubmissions(
		&submodel.Submission{SubmissionID: "archived", UserID: "u1"},
		&submodel.Submission{SubmissionID: "compact", UserID: "u1", TestResults: stored},
		&submodel.Submission{SubmissionID: "pending", UserID: "u1"},
	)
	archive := &fakeArchive{summaries: map[string]verdict.Summary{
		"archived": {Cases: []verdict.CaseResult{{Index: 0, Passed: false, Reason: "expected 3", Expected: "3"}}},
	}}
	s := newTestSubmitService(t, &submitDeps{submissions: subs, archive: archive})

	tests := []struct {
		id   string
		want []verdict.CaseResult
	}{
		{"archived", []verdict.CaseResult{{Index: 0, Passed: false, Reason: "expected 3", Expected: "3"}}},
		{"compact", []verdict.CaseResult{
			{Index: 0, Passed: true, UserOutput: "3", RuntimeMs: 12},
			{Index: 1, Passed: false, UserOutput: "4", RuntimeMs: 8},
		}},
		{"pending", []verdict.CaseResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := s.GetCaseResults(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("GetCaseResults failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("cases mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := s.GetCaseResults(context.Background(), "missing"); !pkgerrors.Is(err, pkgerrors.SubmissionNotFound) {
		t.Fatalf("GetCaseResults(missing) = %v", err)
	}
}
