package model

import "fmt"

// ExecutionOutput is what the execution engine captured for one test case.
type ExecutionOutput struct {
	// RawOutput is nil when nothing was captured.
	RawOutput       *string `json:"rawOutput,omitempty"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs int64   `json:"executionTimeMs"`
	TimedOut        bool    `json:"timedOut"`
	MemoryKB        int64   `json:"memoryKb"`
}

// HasError reports whether execution of the case failed.
func (o ExecutionOutput) HasError() bool {
	return o.Error != ""
}

// Output builds a successful ExecutionOutput around raw.
func Output(raw string) ExecutionOutput {
	return ExecutionOutput{RawOutput: &raw}
}

// ErrorOutput builds a failed ExecutionOutput.
func ErrorOutput(msg string) ExecutionOutput {
	return ExecutionOutput{Error: msg}
}

// Result is the judgement of a single test case.
type Result struct {
	Passed        bool   `json:"passed"`
	JudgeError    bool   `json:"judgeError"`
	FailureReason string `json:"failureReason,omitempty"`
	UserOutput    string `json:"userOutput,omitempty"`
	OracleOutput  string `json:"oracleOutput,omitempty"`
}

func Passed(userOutput, oracleOutput string) Result {
	return Result{Passed: true, UserOutput: userOutput, OracleOutput: oracleOutput}
}

func Failed(reason, userOutput, oracleOutput string) Result {
	return Result{FailureReason: reason, UserOutput: userOutput, OracleOutput: oracleOutput}
}

// JudgeFailure marks a case the judge could not decide. The user is not
// penalized for it.
func JudgeFailure(reason string) Result {
	return Result{JudgeError: true, FailureReason: reason}
}

// Outcome is the verdict of a single comparison or validation step.
type Outcome struct {
	Passed bool
	Reason string
}

func Pass() Outcome {
	return Outcome{Passed: true}
}

func Fail(reason string) Outcome {
	return Outcome{Reason: reason}
}

func Failf(format string, args ...any) Outcome {
	return Fail(fmt.Sprintf(format, args...))
}
