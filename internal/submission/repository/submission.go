package repository

import (
	"context"
	"database/sql"
	"time"

	"algojudge/internal/common/db"
	"algojudge/internal/judging/verdict"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"
)

// SubmissionRepository persists submissions and per-question statistics.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *submodel.Submission) error
	Get(ctx context.Context, submissionID string) (*submodel.Submission, error)
	UpdateStatus(ctx context.Context, submissionID string, status submodel.Status, startedAt *time.Time) error
	Finalize(ctx context.Context, submissionID string, final submodel.Final) error
	MarkFailed(ctx context.Context, submissionID, message string, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]submodel.Submission, int64, error)
	RecordStatistics(ctx context.Context, questionID int64, accepted bool) error
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
type MySQLSubmissionRepository struct {
	db db.Database
}

func NewSubmissionRepository(database db.Database) *MySQLSubmissionRepository {
	return &MySQLSubmissionRepository{db: database}
}

const submissionColumns = `submission_id, user_id, question_id, language, code, status, verdict,
	runtime_ms, memory_kb, passed_test_cases, total_test_cases, test_results, compilation_output,
	error_message, worker_id, ip_address, user_agent, queued_at, started_at, completed_at`

// Create inserts a QUEUED submission.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, s *submodel.Submission) error {
	if s == nil || s.SubmissionID == "" {
		return pkgerrors.ValidationError("submission_id", "required")
	}
	if s.Status == "" {
		s.Status = submodel.StatusQueued
	}
	if s.QueuedAt.IsZero() {
		s.QueuedAt = time.Now()
	}
	query := `
		INSERT INTO submission
		(submission_id, user_id, question_id, language, code, status, ip_address, user_agent, queued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(ctx, query,
		s.SubmissionID,
		s.UserID,
		s.QuestionID,
		string(s.Language),
		s.Code,
		string(s.Status),
		nullString(s.IPAddress),
		nullString(s.UserAgent),
		s.QueuedAt,
	)
	if err != nil {
		if key, ok := db.UniqueViolation(err); ok {
			return pkgerrors.Wrapf(err, pkgerrors.RecordAlreadyExists, "submission %s already exists", s.SubmissionID).
				WithDetail("key", key)
		}
		return pkgerrors.Wrapf(err, pkgerrors.SubmissionCreateFailed, "create submission %s", s.SubmissionID)
	}
	return nil
}

// Get returns a submission, SubmissionNotFound when absent.
func (r *MySQLSubmissionRepository) Get(ctx context.Context, submissionID string) (*submodel.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submission WHERE submission_id = ? LIMIT 1"
	s, err := scanSubmission(r.db.QueryRow(ctx, query, submissionID))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, pkgerrors.New(pkgerrors.SubmissionNotFound).WithDetail("submissionId", submissionID)
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "load submission %s", submissionID)
	}
	return s, nil
}

// UpdateStatus moves a submission to status. startedAt is written when set.
func (r *MySQLSubmissionRepository) UpdateStatus(ctx context.Context, submissionID string, status submodel.Status, startedAt *time.Time) error {
	query := "UPDATE submission SET status = ?, started_at = COALESCE(?, started_at) WHERE submission_id = ?"
	var started any
	if startedAt != nil {
		started = *startedAt
	}
	res, err := r.db.Exec(ctx, query, string(status), started, submissionID)
	return checkAffected(res, err, submissionID)
}

// Finalize stores the outcome of a completed submission.
func (r *MySQLSubmissionRepository) Finalize(ctx context.Context, submissionID string, f submodel.Final) error {
	query := `
		UPDATE submission
		SET status = ?, verdict = ?, runtime_ms = ?, memory_kb = ?, passed_test_cases = ?, total_test_cases = ?,
			test_results = ?, compilation_output = ?, error_message = ?, worker_id = ?, completed_at = ?
		WHERE submission_id = ?`
	res, err := r.db.Exec(ctx, query,
		string(submodel.StatusCompleted),
		string(f.Verdict),
		f.RuntimeMs,
		f.MemoryKB,
		f.PassedTestCases,
		f.TotalTestCases,
		nullString(f.TestResults),
		nullString(f.CompilationOutput),
		nullString(f.ErrorMessage),
		nullString(f.WorkerID),
		f.CompletedAt,
		submissionID,
	)
	return checkAffected(res, err, submissionID)
}

// MarkFailed records a submission the system could not judge.
func (r *MySQLSubmissionRepository) MarkFailed(ctx context.Context, submissionID, message string, completedAt time.Time) error {
	query := "UPDATE submission SET status = ?, error_message = ?, completed_at = ? WHERE submission_id = ?"
	res, err := r.db.Exec(ctx, query, string(submodel.StatusFailed), message, completedAt, submissionID)
	return checkAffected(res, err, submissionID)
}

// ListByUser returns one page of a user's submissions, newest first, and the
// total count. page is 0-based.
func (r *MySQLSubmissionRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]submodel.Submission, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM submission WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "count submissions of user %s", userID)
	}
	if total == 0 {
		return []submodel.Submission{}, 0, nil
	}

	query := "SELECT " + submissionColumns + " FROM submission WHERE user_id = ? ORDER BY queued_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.Query(ctx, query, userID, pageSize, page*pageSize)
	if err != nil {
		return nil, 0, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "list submissions of user %s", userID)
	}
	defer func() { _ = rows.Close() }()

	items := make([]submodel.Submission, 0, pageSize)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "scan submission of user %s", userID)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "iterate submissions of user %s", userID)
	}
	return items, total, nil
}

// RecordStatistics counts one completed submission of questionID.
func (r *MySQLSubmissionRepository) RecordStatistics(ctx context.Context, questionID int64, accepted bool) error {
	acceptedDelta := 0
	if accepted {
		acceptedDelta = 1
	}
	query := `
		INSERT INTO question_statistics (question_id, total_submissions, accepted_submissions)
		VALUES (?, 1, ?)
		ON DUPLICATE KEY UPDATE
			total_submissions = total_submissions + 1,
			accepted_submissions = accepted_submissions + VALUES(accepted_submissions)`
	if _, err := r.db.Exec(ctx, query, questionID, acceptedDelta); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "update statistics of question %d", questionID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (*submodel.Submission, error) {
	var s submodel.Submission
	var language, status string
	var verdictCol, testResults, compileOut, errorMessage, workerID, ipAddress, userAgent sql.NullString
	var runtimeMs, memoryKB, passed, total sql.NullInt64
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&s.SubmissionID,
		&s.UserID,
		&s.QuestionID,
		&language,
		&s.Code,
		&status,
		&verdictCol,
		&runtimeMs,
		&memoryKB,
		&passed,
		&total,
		&testResults,
		&compileOut,
		&errorMessage,
		&workerID,
		&ipAddress,
		&userAgent,
		&s.QueuedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	s.Language = submodel.Language(language)
	s.Status = submodel.Status(status)
	s.Verdict = verdict.Verdict(verdictCol.String)
	s.RuntimeMs = runtimeMs.Int64
	s.MemoryKB = memoryKB.Int64
	s.PassedTestCases = int(passed.Int64)
	s.TotalTestCases = int(total.Int64)
	s.TestResults = testResults.String
	s.CompilationOutput = compileOut.String
	s.ErrorMessage = errorMessage.String
	s.WorkerID = workerID.String
	s.IPAddress = ipAddress.String
	s.UserAgent = userAgent.String
	if startedAt.Valid {
		t := startedAt.Time
		s.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

func checkAffected(res db.Result, err error, submissionID string) error {
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "update submission %s", submissionID)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return pkgerrors.New(pkgerrors.SubmissionNotFound).WithDetail("submissionId", submissionID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
