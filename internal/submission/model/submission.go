// Package model holds the submission-side records shared by the executor,
// repositories and services.
package model

import (
	"strings"
	"time"

	"algojudge/internal/judging/verdict"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusCompiling Status = "COMPILING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsFinal reports whether no further transitions follow.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Language is an upper-case language tag, e.g. JAVA.
type Language string

const (
	LanguageJava   Language = "JAVA"
	LanguagePython Language = "PYTHON"
	LanguageCpp    Language = "CPP"
)

// ParseLanguage normalises raw and reports whether it is supported.
func ParseLanguage(raw string) (Language, bool) {
	lang := Language(strings.ToUpper(strings.TrimSpace(raw)))
	switch lang {
	case LanguageJava, LanguagePython, LanguageCpp:
		return lang, true
	default:
		return lang, false
	}
}

// Submission is a persisted SUBMIT request and its outcome.
type Submission struct {
	ID                int64           `json:"-"`
	SubmissionID      string          `json:"submissionId"`
	UserID            string          `json:"userId"`
	QuestionID        int64           `json:"questionId"`
	Language          Language        `json:"language"`
	Code              string          `json:"code,omitempty"`
	Status            Status          `json:"status"`
	Verdict           verdict.Verdict `json:"verdict,omitempty"`
	RuntimeMs         int64           `json:"runtimeMs"`
	MemoryKB          int64           `json:"memoryKb"`
	PassedTestCases   int             `json:"passedTestCases"`
	TotalTestCases    int             `json:"totalTestCases"`
	TestResults       string          `json:"-"`
	CompilationOutput string          `json:"compilationOutput,omitempty"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
	WorkerID          string          `json:"-"`
	IPAddress         string          `json:"-"`
	UserAgent         string          `json:"-"`
	QueuedAt          time.Time       `json:"queuedAt"`
	StartedAt         *time.Time      `json:"startedAt,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
}

// Final is the outcome written when a submission completes.
type Final struct {
	Verdict           verdict.Verdict
	RuntimeMs         int64
	MemoryKB          int64
	PassedTestCases   int
	TotalTestCases    int
	TestResults       string
	CompilationOutput string
	ErrorMessage      string
	WorkerID          string
	CompletedAt       time.Time
}

// TestCaseType partitions a question's test cases.
type TestCaseType string

const (
	// TestCaseDefault cases are visible and used by RUN.
	TestCaseDefault TestCaseType = "DEFAULT"
	// TestCaseHidden cases decide SUBMIT verdicts.
	TestCaseHidden TestCaseType = "HIDDEN"
)

// TestCase is one stored input, a JSON document of named arguments.
type TestCase struct {
	ID         int64        `json:"id"`
	QuestionID int64        `json:"questionId"`
	Input      string       `json:"input"`
	Type       TestCaseType `json:"type"`
}

// ReferenceSolution is the trusted implementation used as oracle.
type ReferenceSolution struct {
	QuestionID int64    `json:"questionId"`
	Language   Language `json:"language"`
	SourceCode string   `json:"sourceCode"`
}

// QuestionStatistics aggregates completed submissions of a question.
type QuestionStatistics struct {
	QuestionID          int64 `json:"questionId"`
	TotalSubmissions    int64 `json:"totalSubmissions"`
	AcceptedSubmissions int64 `json:"acceptedSubmissions"`
}

// TestResultEntry is the compact per-case record stored with a submission.
type TestResultEntry struct {
	Index  int    `json:"index"`
	Passed bool   `json:"passed"`
	TimeMs int64  `json:"time"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}
