// Package verdict folds per-case judgements into a submission verdict.
package verdict

import (
	"algojudge/internal/judging"
	"algojudge/internal/judging/model"
)

// Verdict is the final outcome of a submission.
type Verdict string

const (
	Accepted            Verdict = "ACCEPTED"
	WrongAnswer         Verdict = "WRONG_ANSWER"
	RuntimeError        Verdict = "RUNTIME_ERROR"
	TimeLimitExceeded   Verdict = "TIME_LIMIT_EXCEEDED"
	MemoryLimitExceeded Verdict = "MEMORY_LIMIT_EXCEEDED"
	CompilationError    Verdict = "COMPILATION_ERROR"
	InternalError       Verdict = "INTERNAL_ERROR"
)

// RunVerdict is the soft outcome of a RUN request against sample cases.
type RunVerdict string

const (
	PassedRun           RunVerdict = "PASSED_RUN"
	FailedRun           RunVerdict = "FAILED_RUN"
	CompilationErrorRun RunVerdict = "COMPILATION_ERROR_RUN"
	RuntimeErrorRun     RunVerdict = "RUNTIME_ERROR_RUN"
	TimeoutRun          RunVerdict = "TIMEOUT_RUN"
	MemoryLimitRun      RunVerdict = "MEMORY_LIMIT_RUN"
	InternalErrorRun    RunVerdict = "INTERNAL_ERROR_RUN"
)

// ExecutionStatus is the overall status of one batch execution.
type ExecutionStatus string

const (
	ExecSuccess          ExecutionStatus = "SUCCESS"
	ExecCompilationError ExecutionStatus = "COMPILATION_ERROR"
	ExecRuntimeError     ExecutionStatus = "RUNTIME_ERROR"
	ExecTimeout          ExecutionStatus = "TIMEOUT"
	ExecMemoryLimit      ExecutionStatus = "MEMORY_LIMIT_EXCEEDED"
	ExecInternalError    ExecutionStatus = "INTERNAL_ERROR"
)

// FromExecutionStatus maps a failed batch to a submission verdict.
func FromExecutionStatus(s ExecutionStatus) Verdict {
	switch s {
	case ExecSuccess:
		return Accepted
	case ExecCompilationError:
		return CompilationError
	case ExecRuntimeError:
		return RuntimeError
	case ExecTimeout:
		return TimeLimitExceeded
	case ExecMemoryLimit:
		return MemoryLimitExceeded
	default:
		return InternalError
	}
}

// RunFromExecutionStatus maps a failed batch to a RUN verdict.
func RunFromExecutionStatus(s ExecutionStatus) RunVerdict {
	switch s {
	case ExecSuccess:
		return PassedRun
	case ExecCompilationError:
		return CompilationErrorRun
	case ExecRuntimeError:
		return RuntimeErrorRun
	case ExecTimeout:
		return TimeoutRun
	case ExecMemoryLimit:
		return MemoryLimitRun
	default:
		return InternalErrorRun
	}
}

// CaseResult is the judgement of one test case with its resource usage.
type CaseResult struct {
	Index       int    `json:"index"`
	Passed      bool   `json:"passed"`
	JudgeError  bool   `json:"judgeError,omitempty"`
	Reason      string `json:"reason,omitempty"`
	UserOutput  string `json:"userOutput,omitempty"`
	Expected    string `json:"expectedOutput,omitempty"`
	RuntimeMs   int64  `json:"runtimeMs"`
	MemoryKB    int64  `json:"memoryKb"`
	ErrorOutput string `json:"error,omitempty"`
}

// Summary is the aggregate of a submission's test cases.
type Summary struct {
	Verdict Verdict `json:"verdict"`
	// FailedIndex is the first failing case, -1 when all passed.
	FailedIndex  int          `json:"failedIndex"`
	Reason       string       `json:"reason,omitempty"`
	PassedCases  int          `json:"passedTestCases"`
	TotalCases   int          `json:"totalTestCases"`
	MaxRuntimeMs int64        `json:"runtimeMs"`
	MaxMemoryKB  int64        `json:"memoryKb"`
	Cases        []CaseResult `json:"cases"`
}

// JudgeCase judges a single case, treating a user error as a failure without
// consulting the pipeline.
func JudgeCase(p *judging.Pipeline, ctx *model.Context, index int, user, oracle model.ExecutionOutput) (CaseResult, Verdict) {
	cr := CaseResult{
		Index:     index,
		RuntimeMs: user.ExecutionTimeMs,
		MemoryKB:  user.MemoryKB,
	}
	if user.HasError() {
		cr.Reason = user.Error
		cr.ErrorOutput = user.Error
		return cr, RuntimeError
	}

	res := p.Judge(user, oracle, ctx)
	cr.Passed = res.Passed
	cr.JudgeError = res.JudgeError
	cr.Reason = res.FailureReason
	cr.UserOutput = res.UserOutput
	cr.Expected = res.OracleOutput
	switch {
	case res.JudgeError:
		return cr, InternalError
	case !res.Passed:
		return cr, WrongAnswer
	default:
		return cr, Accepted
	}
}

// Aggregate judges cases in index order and stops at the first failure. The
// oracle slice is index aligned with user; a missing oracle entry is judged
// as absent output.
func Aggregate(p *judging.Pipeline, ctx *model.Context, user, oracle []model.ExecutionOutput) Summary {
	sum := Summary{
		Verdict:     Accepted,
		FailedIndex: -1,
		TotalCases:  len(user),
		Cases:       make([]CaseResult, 0, len(user)),
	}
	for i, out := range user {
		var expected model.ExecutionOutput
		if i < len(oracle) {
			expected = oracle[i]
		}
		cr, v := JudgeCase(p, ctx, i, out, expected)
		sum.Cases = append(sum.Cases, cr)
		sum.MaxRuntimeMs = max(sum.MaxRuntimeMs, cr.RuntimeMs)
		sum.MaxMemoryKB = max(sum.MaxMemoryKB, cr.MemoryKB)
		if v != Accepted {
			sum.Verdict = v
			sum.FailedIndex = i
			sum.Reason = cr.Reason
			return sum
		}
		sum.PassedCases++
	}
	return sum
}

// RunSummary is the soft verdict of a RUN request. Unlike Aggregate every
// case is judged so all outputs can be shown. Any failing case, including a
// runtime error in one case, fails the run.
type RunSummary struct {
	Verdict     RunVerdict   `json:"verdict"`
	PassedCases int          `json:"passedTestCases"`
	TotalCases  int          `json:"totalTestCases"`
	Cases       []CaseResult `json:"cases"`
}

// AggregateRun judges every case of a RUN request.
func AggregateRun(p *judging.Pipeline, ctx *model.Context, user, oracle []model.ExecutionOutput) RunSummary {
	sum := RunSummary{
		Verdict:    PassedRun,
		TotalCases: len(user),
		Cases:      make([]CaseResult, 0, len(user)),
	}
	for i, out := range user {
		var expected model.ExecutionOutput
		if i < len(oracle) {
			expected = oracle[i]
		}
		cr, v := JudgeCase(p, ctx, i, out, expected)
		sum.Cases = append(sum.Cases, cr)
		switch {
		case v == Accepted:
			sum.PassedCases++
		case v == InternalError && sum.Verdict == PassedRun:
			sum.Verdict = InternalErrorRun
		case sum.Verdict == PassedRun:
			sum.Verdict = FailedRun
		}
	}
	return sum
}
