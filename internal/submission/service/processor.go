package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"algojudge/internal/common/mq"
	"algojudge/internal/judging"
	"algojudge/internal/judging/model"
	"algojudge/internal/judging/verdict"
	"algojudge/internal/submission/executor"
	submodel "algojudge/internal/submission/model"
	"algojudge/internal/submission/repository"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/contextkey"
	"algojudge/pkg/utils/logger"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProcessorConfig holds the processor's dependencies and settings.
type ProcessorConfig struct {
	Submissions repository.SubmissionRepository
	Questions   QuestionStore
	Statuses    StatusStore
	Adapter     executor.Adapter
	Oracle      OracleExecutor
	// Notifier and Archive are optional.
	Notifier Notifier
	Archive  ResultArchiver

	WorkerID         string
	ExecutionTimeout time.Duration
	StatusTimeout    time.Duration
}

// Processor judges queued submissions.
type Processor struct {
	submissions repository.SubmissionRepository
	questions   QuestionStore
	statuses    StatusStore
	adapter     executor.Adapter
	oracle      OracleExecutor
	notifier    Notifier
	archive     ResultArchiver

	workerID         string
	executionTimeout time.Duration
	statusTimeout    time.Duration
	now              func() time.Time
}

func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if cfg.Submissions == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Questions == nil {
		return nil, fmt.Errorf("question store is required")
	}
	if cfg.Statuses == nil {
		return nil, fmt.Errorf("status store is required")
	}
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("execution adapter is required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle executor is required")
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Processor{
		submissions:      cfg.Submissions,
		questions:        cfg.Questions,
		statuses:         cfg.Statuses,
		adapter:          cfg.Adapter,
		oracle:           cfg.Oracle,
		notifier:         notifier,
		archive:          cfg.Archive,
		workerID:         cfg.WorkerID,
		executionTimeout: cfg.ExecutionTimeout,
		statusTimeout:    cfg.StatusTimeout,
		now:              time.Now,
	}, nil
}

// HandleMessage is the consumer of the submission topic.
func (p *Processor) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return pkgerrors.New(pkgerrors.InvalidParams).WithMessage("message is nil")
	}
	var payload submodel.SubmissionMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		logger.Error(ctx, "drop undecodable submission message", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	if payload.SubmissionID == "" {
		logger.Error(ctx, "drop submission message without id", zap.String("message_id", msg.ID))
		return nil
	}
	ctx = context.WithValue(ctx, contextkey.SubmissionID, payload.SubmissionID)

	sub, err := p.submissions.Get(ctx, payload.SubmissionID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.SubmissionNotFound) {
			logger.Warn(ctx, "submission message for unknown submission")
			return nil
		}
		return err
	}
	if sub.Status.IsFinal() {
		logger.Info(ctx, "submission already judged, skipping redelivery", zap.String("status", string(sub.Status)))
		return nil
	}
	return p.Process(ctx, sub)
}

// Process judges sub against its question's hidden test cases.
func (p *Processor) Process(ctx context.Context, sub *submodel.Submission) error {
	started := p.now()
	sub.StartedAt = &started
	if err := p.transition(ctx, sub, submodel.StatusCompiling); err != nil {
		return p.handleFailure(ctx, sub, err)
	}

	lang := string(sub.Language)
	meta, err := p.questions.GetMetadata(ctx, sub.QuestionID, lang)
	if err != nil {
		return p.handleFailure(ctx, sub, err)
	}
	cases, err := p.questions.GetTestCases(ctx, sub.QuestionID, submodel.TestCaseHidden)
	if err != nil {
		return p.handleFailure(ctx, sub, err)
	}
	if len(cases) == 0 {
		return p.handleFailure(ctx, sub, pkgerrors.New(pkgerrors.TestCaseNotFound).
			WithMessagef("question %d has no hidden test cases", sub.QuestionID))
	}
	jctx, err := model.BuildContext(meta)
	if err != nil {
		return p.handleFailure(ctx, sub, err)
	}
	pipeline := judging.Assemble(jctx)
	logger.Debug(ctx, "judging pipeline assembled", zap.String("pipeline", pipeline.Describe()))

	if err := p.transition(ctx, sub, submodel.StatusRunning); err != nil {
		return p.handleFailure(ctx, sub, err)
	}

	inputs := inputsOf(cases)
	userRes, oracleRes, userErr, oracleErr := p.executeBatches(ctx, sub, meta, inputs)
	if userErr != nil {
		if errors.Is(userErr, context.Canceled) {
			return userErr
		}
		logger.Error(ctx, "user batch could not be executed", zap.Error(userErr))
		return p.finalize(ctx, sub, submodel.Final{
			Verdict:        verdict.InternalError,
			TotalTestCases: len(inputs),
			ErrorMessage:   userErr.Error(),
		}, nil)
	}
	if !userRes.Succeeded() {
		return p.finalize(ctx, sub, submodel.Final{
			Verdict:           verdict.FromExecutionStatus(userRes.Status),
			RuntimeMs:         userRes.TotalRuntimeMs,
			MemoryKB:          userRes.PeakMemoryKB,
			TotalTestCases:    len(inputs),
			CompilationOutput: userRes.CompilationOutput,
			ErrorMessage:      userRes.ErrorMessage,
			WorkerID:          userRes.WorkerID,
		}, nil)
	}
	if oracleErr != nil {
		logger.Error(ctx, "oracle batch failed", zap.Error(oracleErr))
		return p.finalize(ctx, sub, submodel.Final{
			Verdict:        verdict.InternalError,
			RuntimeMs:      userRes.TotalRuntimeMs,
			MemoryKB:       userRes.PeakMemoryKB,
			TotalTestCases: len(inputs),
			ErrorMessage:   oracleErr.Error(),
			WorkerID:       userRes.WorkerID,
		}, nil)
	}

	summary := verdict.Aggregate(pipeline, jctx, userRes.Outputs, oracleRes.Outputs)
	logger.Info(ctx, "submission judged",
		zap.String("verdict", string(summary.Verdict)),
		zap.Int("passed", summary.PassedCases),
		zap.Int("total", summary.TotalCases),
		zap.Int("failed_index", summary.FailedIndex),
	)
	final := submodel.Final{
		Verdict:           summary.Verdict,
		RuntimeMs:         userRes.TotalRuntimeMs,
		MemoryKB:          userRes.PeakMemoryKB,
		PassedTestCases:   summary.PassedCases,
		TotalTestCases:    summary.TotalCases,
		TestResults:       encodeTestResults(summary.Cases),
		CompilationOutput: userRes.CompilationOutput,
		WorkerID:          userRes.WorkerID,
	}
	if summary.Verdict != verdict.Accepted {
		final.ErrorMessage = summary.Reason
	}
	return p.finalize(ctx, sub, final, &summary)
}

// executeBatches runs the user and oracle batches concurrently. A user
// batch transport failure cancels the oracle; an oracle failure is
// reported without cancelling the user batch so its own verdict still
// stands.
func (p *Processor) executeBatches(ctx context.Context, sub *submodel.Submission, meta model.QuestionMetadata, inputs []string) (userRes, oracleRes *executor.BatchResult, userErr, oracleErr error) {
	execCtx, cancel := withTimeout(ctx, p.executionTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(execCtx)
	g.Go(func() error {
		var err error
		userRes, err = p.adapter.Execute(gctx, executor.CodeBundle{
			ExecutionID: sub.SubmissionID,
			UserID:      sub.UserID,
			QuestionID:  sub.QuestionID,
			Language:    string(sub.Language),
			Code:        sub.Code,
			Metadata:    meta,
			Inputs:      inputs,
		})
		return err
	})
	g.Go(func() error {
		oracleRes, oracleErr = p.oracle.Run(gctx, meta, inputs)
		return nil
	})
	userErr = g.Wait()
	return userRes, oracleRes, userErr, oracleErr
}

func (p *Processor) transition(ctx context.Context, sub *submodel.Submission, status submodel.Status) error {
	var startedAt *time.Time
	if status == submodel.StatusCompiling {
		startedAt = sub.StartedAt
	}
	if err := p.submissions.UpdateStatus(ctx, sub.SubmissionID, status, startedAt); err != nil {
		return err
	}
	sub.Status = status
	p.saveStatus(ctx, sub.Snapshot(p.now()))
	p.notifier.NotifyStatus(ctx, sub.SubmissionID, status)
	return nil
}

func (p *Processor) finalize(ctx context.Context, sub *submodel.Submission, final submodel.Final, summary *verdict.Summary) error {
	final.CompletedAt = p.now()
	if final.WorkerID == "" {
		final.WorkerID = p.workerID
	}
	if err := p.submissions.Finalize(ctx, sub.SubmissionID, final); err != nil {
		return p.handleFailure(ctx, sub, err)
	}
	applyFinal(sub, final)

	if err := p.submissions.RecordStatistics(ctx, sub.QuestionID, final.Verdict == verdict.Accepted); err != nil {
		logger.Warn(ctx, "update question statistics failed", zap.Int64("question_id", sub.QuestionID), zap.Error(err))
	}
	if summary != nil && p.archive != nil {
		if err := p.archive.Save(ctx, sub.SubmissionID, *summary); err != nil {
			logger.Warn(ctx, "archive judging detail failed", zap.Error(err))
		}
	}
	snapshot := sub.Snapshot(p.now())
	p.saveStatus(ctx, snapshot)
	p.notifier.NotifyResult(ctx, snapshot)
	return nil
}

// handleFailure marks sub FAILED. Only cancellation is returned, so the
// message is retried after a restart instead of being judged twice.
func (p *Processor) handleFailure(ctx context.Context, sub *submodel.Submission, err error) error {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return err
	}
	logger.Error(ctx, "submission processing failed",
		zap.Int("code", int(pkgerrors.GetCode(err))),
		zap.Error(err),
	)
	completed := p.now()
	if markErr := p.submissions.MarkFailed(ctx, sub.SubmissionID, err.Error(), completed); markErr != nil {
		logger.Warn(ctx, "mark submission failed failed", zap.Error(markErr))
	}
	sub.Status = submodel.StatusFailed
	sub.ErrorMessage = err.Error()
	sub.CompletedAt = &completed
	p.saveStatus(ctx, sub.Snapshot(completed))
	p.notifier.NotifyError(ctx, sub.SubmissionID, err.Error())
	return nil
}

// saveStatus is best effort; the database row stays authoritative.
func (p *Processor) saveStatus(ctx context.Context, status submodel.StatusSnapshot) {
	ctxStatus, cancel := withTimeout(ctx, p.statusTimeout)
	defer cancel()
	if err := p.statuses.Save(ctxStatus, status); err != nil {
		logger.Warn(ctx, "update status cache failed", zap.String("status", string(status.Status)), zap.Error(err))
	}
}

func applyFinal(sub *submodel.Submission, f submodel.Final) {
	sub.Status = submodel.StatusCompleted
	sub.Verdict = f.Verdict
	sub.RuntimeMs = f.RuntimeMs
	sub.MemoryKB = f.MemoryKB
	sub.PassedTestCases = f.PassedTestCases
	sub.TotalTestCases = f.TotalTestCases
	sub.TestResults = f.TestResults
	sub.CompilationOutput = f.CompilationOutput
	sub.ErrorMessage = f.ErrorMessage
	sub.WorkerID = f.WorkerID
	completed := f.CompletedAt
	sub.CompletedAt = &completed
}

func encodeTestResults(cases []verdict.CaseResult) string {
	entries := make([]submodel.TestResultEntry, len(cases))
	for i, c := range cases {
		entries[i] = submodel.TestResultEntry{
			Index:  c.Index,
			Passed: c.Passed,
			TimeMs: c.RuntimeMs,
			Output: c.UserOutput,
			Error:  c.ErrorOutput,
		}
	}
	out, err := json.MarshalToString(entries)
	if err != nil {
		return ""
	}
	return out
}
