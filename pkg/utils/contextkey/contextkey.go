package contextkey

// Key is a context key owned by this package.
type Key string

const (
	TraceID      Key = "trace_id"
	RequestID    Key = "request_id"
	UserID       Key = "user_id"
	SubmissionID Key = "submission_id"
)
