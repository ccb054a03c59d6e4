package errors

import "net/http"

// ErrorCode identifies a failure category across service boundaries.
type ErrorCode int

// Code ranges:
// 10000-10999: common and infrastructure
// 12000-12999: questions, test cases and reference solutions
// 13000-13999: submissions, runs and judging
const (
	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102

	CacheError ErrorCode = 10200
	QueueError ErrorCode = 10210

	StorageError ErrorCode = 10220

	ValidationFailed ErrorCode = 10300
	InvalidFormat    ErrorCode = 10301
	InvalidValue     ErrorCode = 10302

	QuestionNotFound         ErrorCode = 12000
	QuestionMetadataNotFound ErrorCode = 12001
	TestCaseNotFound         ErrorCode = 12100
	OracleMissing            ErrorCode = 12200

	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	LanguageNotSupported   ErrorCode = 13003

	InvalidJudgingContext ErrorCode = 13100
	ExecutionFailed       ErrorCode = 13101
	OracleFailed          ErrorCode = 13102

	RunLimitExceeded ErrorCode = 13200
	RunInputTooLarge ErrorCode = 13201
)

var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found",
	RecordAlreadyExists: "Record already exists",
	CacheError:          "Cache operation failed",
	QueueError:          "Message queue operation failed",
	StorageError:        "Object storage operation failed",

	ValidationFailed: "Validation failed",
	InvalidFormat:    "Invalid format",
	InvalidValue:     "Invalid value",

	QuestionNotFound:         "Question not found",
	QuestionMetadataNotFound: "Question metadata not found for language",
	TestCaseNotFound:         "Test case not found",
	OracleMissing:            "Question not properly configured for testing",

	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	LanguageNotSupported:   "Programming language not supported",

	InvalidJudgingContext: "Invalid judging metadata",
	ExecutionFailed:       "Code execution failed",
	OracleFailed:          "Oracle execution failed",

	RunLimitExceeded: "RUN rate limit exceeded. Please wait before trying again.",
	RunInputTooLarge: "RUN payload too large",
}

// Message returns the default message for the code.
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the HTTP status a handler should answer with.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return http.StatusOK
	case c == NotFound, c == RecordNotFound, c == QuestionNotFound,
		c == QuestionMetadataNotFound, c == TestCaseNotFound, c == SubmissionNotFound:
		return http.StatusNotFound
	case c == TooManyRequests, c == RunLimitExceeded:
		return http.StatusTooManyRequests
	case c == ServiceUnavailable:
		return http.StatusServiceUnavailable
	case c == Timeout:
		return http.StatusGatewayTimeout
	case c >= 10300 && c < 10400, c == InvalidParams, c == LanguageNotSupported,
		c == RunInputTooLarge, c == InvalidJudgingContext:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
