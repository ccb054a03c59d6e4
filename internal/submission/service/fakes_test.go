package service

import (
	"context"
	"sync"
	"time"

	"algojudge/internal/common/mq"
	"algojudge/internal/judging/model"
	"algojudge/internal/judging/verdict"
	"algojudge/internal/submission/executor"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSubmissions struct {
	mu          sync.Mutex
	records     map[string]*submodel.Submission
	statuses    []submodel.Status
	finals      []submodel.Final
	failed      []string
	stats       []bool
	createErr   error
	updateErr   error
	finalizeErr error
}

func newFakeSubmissions(subs ...*submodel.Submission) *fakeSubmissions {
	f := &fakeSubmissions{records: map[string]*submodel.Submission{}}
	for _, s := range subs {
		f.records[s.SubmissionID] = s
	}
	return f
}

func (f *fakeSubmissions) Create(ctx context.Context, sub *submodel.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *sub
	f.records[sub.SubmissionID] = &copied
	return nil
}

func (f *fakeSubmissions) Get(ctx context.Context, submissionID string) (*submodel.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.records[submissionID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.SubmissionNotFound)
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubmissions) UpdateStatus(ctx context.Context, submissionID string, status submodel.Status, startedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statuses = append(f.statuses, status)
	if sub, ok := f.records[submissionID]; ok {
		sub.Status = status
	}
	return nil
}

func (f *fakeSubmissions) Finalize(ctx context.Context, submissionID string, final submodel.Final) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finals = append(f.finals, final)
	if sub, ok := f.records[submissionID]; ok {
		sub.Status = submodel.StatusCompleted
		sub.Verdict = final.Verdict
		sub.TestResults = final.TestResults
	}
	return nil
}

func (f *fakeSubmissions) MarkFailed(ctx context.Context, submissionID, message string, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, message)
	if sub, ok := f.records[submissionID]; ok {
		sub.Status = submodel.StatusFailed
		sub.ErrorMessage = message
	}
	return nil
}

func (f *fakeSubmissions) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]submodel.Submission, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []submodel.Submission
	for _, s := range f.records {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	total := int64(len(out))
	start := page * pageSize
	if start >= len(out) {
		return []submodel.Submission{}, total, nil
	}
	end := min(start+pageSize, len(out))
	return out[start:end], total, nil
}

func (f *fakeSubmissions) RecordStatistics(ctx context.Context, questionID int64, accepted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, accepted)
	return nil
}

type fakeQuestions struct {
	meta    model.QuestionMetadata
	metaErr error
	cases   map[submodel.TestCaseType][]submodel.TestCase
}

func (f *fakeQuestions) GetMetadata(ctx context.Context, questionID int64, language string) (model.QuestionMetadata, error) {
	if f.metaErr != nil {
		return model.QuestionMetadata{}, f.metaErr
	}
	meta := f.meta
	meta.QuestionID = questionID
	meta.Language = language
	return meta, nil
}

func (f *fakeQuestions) GetTestCases(ctx context.Context, questionID int64, typ submodel.TestCaseType) ([]submodel.TestCase, error) {
	return f.cases[typ], nil
}

func intQuestion(inputs ...string) *fakeQuestions {
	hidden := make([]submodel.TestCase, len(inputs))
	for i, in := range inputs {
		hidden[i] = submodel.TestCase{ID: int64(i + 1), QuestionID: 7, Input: in, Type: submodel.TestCaseHidden}
	}
	samples := hidden
	if len(samples) > 1 {
		samples = samples[:1]
	}
	return &fakeQuestions{
		meta: model.QuestionMetadata{
			FunctionName: "solve",
			ReturnType:   "int",
			ParamNames:   []string{"n"},
			ParamTypes:   []string{"int"},
		},
		cases: map[submodel.TestCaseType][]submodel.TestCase{
			submodel.TestCaseHidden:  hidden,
			submodel.TestCaseDefault: samples,
		},
	}
}

type fakeStatuses struct {
	mu    sync.Mutex
	saved []submodel.StatusSnapshot
	err   error
}

func (f *fakeStatuses) Get(ctx context.Context, submissionID string) (submodel.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].SubmissionID == submissionID {
			return f.saved[i], nil
		}
	}
	return submodel.StatusSnapshot{}, pkgerrors.New(pkgerrors.SubmissionNotFound)
}

func (f *fakeStatuses) Save(ctx context.Context, status submodel.StatusSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, status)
	return nil
}

func (f *fakeStatuses) last() submodel.StatusSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return submodel.StatusSnapshot{}
	}
	return f.saved[len(f.saved)-1]
}

type fakeAdapter struct {
	mu      sync.Mutex
	bundles []executor.CodeBundle
	result  *executor.BatchResult
	err     error
}

func (f *fakeAdapter) Execute(ctx context.Context, bundle executor.CodeBundle) (*executor.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles = append(f.bundles, bundle)
	return f.result, f.err
}

type fakeOracle struct {
	has    bool
	hasErr error
	result *executor.BatchResult
	err    error
}

func (f *fakeOracle) HasOracle(ctx context.Context, questionID int64) (bool, error) {
	return f.has, f.hasErr
}

func (f *fakeOracle) Run(ctx context.Context, meta model.QuestionMetadata, inputs []string) (*executor.BatchResult, error) {
	return f.result, f.err
}

func success(values ...string) *executor.BatchResult {
	outputs := make([]model.ExecutionOutput, len(values))
	for i, v := range values {
		outputs[i] = model.Output(v)
		outputs[i].ExecutionTimeMs = int64(10 * (i + 1))
	}
	return &executor.BatchResult{
		Status:         verdict.ExecSuccess,
		Outputs:        outputs,
		TotalRuntimeMs: 42,
		PeakMemoryKB:   2048,
		WorkerID:       "cxe-1",
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []submodel.Status
	results  []submodel.StatusSnapshot
	errors   []string
}

func (n *recordingNotifier) NotifyStatus(ctx context.Context, submissionID string, status submodel.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *recordingNotifier) NotifyResult(ctx context.Context, status submodel.StatusSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, status)
}

func (n *recordingNotifier) NotifyError(ctx context.Context, submissionID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

type fakeArchive struct {
	summaries map[string]verdict.Summary
	loadErr   error
}

func (f *fakeArchive) Save(ctx context.Context, submissionID string, summary verdict.Summary) error {
	if f.summaries == nil {
		f.summaries = map[string]verdict.Summary{}
	}
	f.summaries[submissionID] = summary
	return nil
}

func (f *fakeArchive) Load(ctx context.Context, submissionID string) (verdict.Summary, bool, error) {
	if f.loadErr != nil {
		return verdict.Summary{}, false, f.loadErr
	}
	s, ok := f.summaries[submissionID]
	return s, ok, nil
}

type fakeProducer struct {
	topics   []string
	messages []*mq.Message
	err      error
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.messages = append(f.messages, message)
	return nil
}
