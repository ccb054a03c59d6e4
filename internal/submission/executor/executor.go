// Package executor runs code batches on the remote execution engine.
package executor

import (
	"context"

	"algojudge/internal/judging/model"
	"algojudge/internal/judging/verdict"
)

// CodeBundle is one batch: a program and every input it must be run on.
type CodeBundle struct {
	ExecutionID string
	UserID      string
	QuestionID  int64
	Language    string
	Code        string
	Metadata    model.QuestionMetadata
	// Inputs are JSON documents of named arguments, one per test case.
	Inputs []string
}

// BatchResult is the outcome of a CodeBundle. Outputs are index aligned
// with the bundle's Inputs.
type BatchResult struct {
	ExecutionID       string
	Status            verdict.ExecutionStatus
	Outputs           []model.ExecutionOutput
	CompilationOutput string
	ErrorMessage      string
	TotalRuntimeMs    int64
	PeakMemoryKB      int64
	WorkerID          string
}

// Succeeded reports whether the batch ran to completion.
func (r *BatchResult) Succeeded() bool {
	return r != nil && r.Status == verdict.ExecSuccess
}

// Adapter executes bundles. An error means the engine could not be reached
// or did not answer in time; program failures are reported in BatchResult.
type Adapter interface {
	Execute(ctx context.Context, bundle CodeBundle) (*BatchResult, error)
}
