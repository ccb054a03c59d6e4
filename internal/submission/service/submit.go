package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"algojudge/internal/common/mq"
	"algojudge/internal/judging/verdict"
	submodel "algojudge/internal/submission/model"
	"algojudge/internal/submission/repository"
	pkgerrors "algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxCodeBytes = 64 * 1024
	defaultPageSize     = 20
	maxPageSize         = 100
)

// SubmitRequest is a SUBMIT as received from a client.
type SubmitRequest struct {
	UserID     string `json:"userId"`
	QuestionID int64  `json:"questionId"`
	Language   string `json:"language"`
	Code       string `json:"code"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// SubmitConfig holds SubmitService dependencies.
type SubmitConfig struct {
	Submissions repository.SubmissionRepository
	Statuses    StatusStore
	Producer    mq.Producer
	Topic       string
	// Archive is optional.
	Archive ResultArchiver

	MaxCodeBytes  int
	StatusTimeout time.Duration
}

// SubmitService accepts submissions and answers queries about them.
type SubmitService struct {
	submissions   repository.SubmissionRepository
	statuses      StatusStore
	producer      mq.Producer
	topic         string
	archive       ResultArchiver
	maxCodeBytes  int
	statusTimeout time.Duration
	now           func() time.Time
}

func NewSubmitService(cfg SubmitConfig) (*SubmitService, error) {
	if cfg.Submissions == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Statuses == nil {
		return nil, fmt.Errorf("status store is required")
	}
	if cfg.Producer == nil {
		return nil, fmt.Errorf("message producer is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("submission topic is required")
	}
	maxCode := cfg.MaxCodeBytes
	if maxCode <= 0 {
		maxCode = defaultMaxCodeBytes
	}
	return &SubmitService{
		submissions:   cfg.Submissions,
		statuses:      cfg.Statuses,
		producer:      cfg.Producer,
		topic:         cfg.Topic,
		archive:       cfg.Archive,
		maxCodeBytes:  maxCode,
		statusTimeout: cfg.StatusTimeout,
		now:           time.Now,
	}, nil
}

// Submit persists a QUEUED submission and enqueues it for judging.
func (s *SubmitService) Submit(ctx context.Context, req SubmitRequest) (*submodel.Submission, error) {
	if req.QuestionID <= 0 {
		return nil, pkgerrors.ValidationError("questionId", "required")
	}
	lang, ok := submodel.ParseLanguage(req.Language)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.LanguageNotSupported).WithDetail("language", req.Language)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, pkgerrors.ValidationError("code", "required")
	}
	if len(req.Code) > s.maxCodeBytes {
		return nil, pkgerrors.ValidationError("code", fmt.Sprintf("exceeds %d bytes", s.maxCodeBytes))
	}

	sub := &submodel.Submission{
		SubmissionID: uuid.NewString(),
		UserID:       req.UserID,
		QuestionID:   req.QuestionID,
		Language:     lang,
		Code:         req.Code,
		Status:       submodel.StatusQueued,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		QueuedAt:     s.now(),
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.saveStatus(ctx, sub.Snapshot(sub.QueuedAt))

	payload, err := json.Marshal(submodel.SubmissionMessage{
		SubmissionID: sub.SubmissionID,
		QuestionID:   sub.QuestionID,
		UserID:       sub.UserID,
		Language:     sub.Language,
		QueuedAt:     sub.QueuedAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "marshal submission message")
	}
	msg := mq.NewMessage(payload)
	msg.ID = sub.SubmissionID
	if err := s.producer.Publish(ctx, s.topic, msg); err != nil {
		failedAt := s.now()
		if markErr := s.submissions.MarkFailed(ctx, sub.SubmissionID, "enqueue failed", failedAt); markErr != nil {
			logger.Warn(ctx, "mark unqueued submission failed", zap.String("submission_id", sub.SubmissionID), zap.Error(markErr))
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.QueueError, "enqueue submission %s", sub.SubmissionID)
	}
	logger.Info(ctx, "submission queued",
		zap.String("submission_id", sub.SubmissionID),
		zap.Int64("question_id", sub.QuestionID),
		zap.String("language", string(sub.Language)),
	)
	return sub, nil
}

// GetSubmission returns a submission with its outcome.
func (s *SubmitService) GetSubmission(ctx context.Context, submissionID string) (*submodel.Submission, error) {
	if strings.TrimSpace(submissionID) == "" {
		return nil, pkgerrors.ValidationError("submissionId", "required")
	}
	return s.submissions.Get(ctx, submissionID)
}

// GetStatus returns the latest known status of a submission.
func (s *SubmitService) GetStatus(ctx context.Context, submissionID string) (submodel.StatusSnapshot, error) {
	if strings.TrimSpace(submissionID) == "" {
		return submodel.StatusSnapshot{}, pkgerrors.ValidationError("submissionId", "required")
	}
	return s.statuses.Get(ctx, submissionID)
}

// ListUserSubmissions returns one page of userID's submissions, newest
// first. page is 0-based; a non-positive size selects the default.
func (s *SubmitService) ListUserSubmissions(ctx context.Context, userID string, page, size int) ([]submodel.Submission, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, pkgerrors.ValidationError("userId", "required")
	}
	if page < 0 {
		return nil, 0, pkgerrors.ValidationError("page", "must not be negative")
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return s.submissions.ListByUser(ctx, userID, page, size)
}

// GetCaseResults returns per-case judging detail. The archived detail is
// preferred; otherwise the compact record stored with the submission is
// used.
func (s *SubmitService) GetCaseResults(ctx context.Context, submissionID string) ([]verdict.CaseResult, error) {
	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if s.archive != nil {
		summary, ok, err := s.archive.Load(ctx, submissionID)
		if err != nil {
			logger.Warn(ctx, "load result archive failed", zap.String("submission_id", submissionID), zap.Error(err))
		} else if ok {
			return summary.Cases, nil
		}
	}
	if sub.TestResults == "" {
		return []verdict.CaseResult{}, nil
	}
	var entries []submodel.TestResultEntry
	if err := json.UnmarshalFromString(sub.TestResults, &entries); err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "decode test results of %s", submissionID)
	}
	cases := make([]verdict.CaseResult, len(entries))
	for i, e := range entries {
		cases[i] = verdict.CaseResult{
			Index:       e.Index,
			Passed:      e.Passed,
			UserOutput:  e.Output,
			RuntimeMs:   e.TimeMs,
			ErrorOutput: e.Error,
		}
	}
	return cases, nil
}

func (s *SubmitService) saveStatus(ctx context.Context, status submodel.StatusSnapshot) {
	ctxStatus, cancel := withTimeout(ctx, s.statusTimeout)
	defer cancel()
	if err := s.statuses.Save(ctxStatus, status); err != nil {
		logger.Warn(ctx, "update status cache failed", zap.String("submission_id", status.SubmissionID), zap.Error(err))
	}
}
