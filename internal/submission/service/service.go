// Package service orchestrates SUBMIT processing and synchronous RUN requests.
package service

import (
	"context"
	"time"

	"algojudge/internal/judging/model"
	"algojudge/internal/judging/verdict"
	"algojudge/internal/submission/executor"
	submodel "algojudge/internal/submission/model"
)

// QuestionStore resolves what a question needs for judging.
type QuestionStore interface {
	GetMetadata(ctx context.Context, questionID int64, language string) (model.QuestionMetadata, error)
	GetTestCases(ctx context.Context, questionID int64, typ submodel.TestCaseType) ([]submodel.TestCase, error)
}

// OracleExecutor runs a question's reference solution.
type OracleExecutor interface {
	HasOracle(ctx context.Context, questionID int64) (bool, error)
	Run(ctx context.Context, meta model.QuestionMetadata, inputs []string) (*executor.BatchResult, error)
}

// StatusStore keeps the latest status of each submission.
type StatusStore interface {
	Get(ctx context.Context, submissionID string) (submodel.StatusSnapshot, error)
	Save(ctx context.Context, status submodel.StatusSnapshot) error
}

// ResultArchiver keeps the full per-case detail of judged submissions.
type ResultArchiver interface {
	Save(ctx context.Context, submissionID string, summary verdict.Summary) error
	Load(ctx context.Context, submissionID string) (verdict.Summary, bool, error)
}

// Notifier pushes progress to clients watching a submission.
type Notifier interface {
	NotifyStatus(ctx context.Context, submissionID string, status submodel.Status)
	NotifyResult(ctx context.Context, status submodel.StatusSnapshot)
	NotifyError(ctx context.Context, submissionID, message string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyStatus(context.Context, string, submodel.Status) {}

func (noopNotifier) NotifyResult(context.Context, submodel.StatusSnapshot) {}

func (noopNotifier) NotifyError(context.Context, string, string) {}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func inputsOf(cases []submodel.TestCase) []string {
	inputs := make([]string, len(cases))
	for i, tc := range cases {
		inputs[i] = tc.Input
	}
	return inputs
}
