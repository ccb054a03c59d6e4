package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"algojudge/internal/judging/verdict"
	submodel "algojudge/internal/submission/model"
	"algojudge/internal/submission/service"
	"algojudge/pkg/utils/contextkey"
	"algojudge/pkg/utils/logger"
	"algojudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SubmissionService is what the submission endpoints need.
type SubmissionService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*submodel.Submission, error)
	GetSubmission(ctx context.Context, submissionID string) (*submodel.Submission, error)
	GetStatus(ctx context.Context, submissionID string) (submodel.StatusSnapshot, error)
	ListUserSubmissions(ctx context.Context, userID string, page, size int) ([]submodel.Submission, int64, error)
	GetCaseResults(ctx context.Context, submissionID string) ([]verdict.CaseResult, error)
}

// StatusStreamer streams submission progress over a websocket.
type StatusStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, submissionID string) error
}

// SubmissionController handles submission HTTP endpoints.
type SubmissionController struct {
	submissions SubmissionService
	streamer    StatusStreamer
}

func NewSubmissionController(submissions SubmissionService, streamer StatusStreamer) *SubmissionController {
	return &SubmissionController{submissions: submissions, streamer: streamer}
}

// Create accepts a submission for asynchronous judging.
func (h *SubmissionController) Create(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	sub, err := h.submissions.Submit(c.Request.Context(), service.SubmitRequest{
		UserID:     userIDOf(c, req.UserID),
		QuestionID: req.QuestionID,
		Language:   req.Language,
		Code:       req.Code,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, SubmitResponse{
		SubmissionID: sub.SubmissionID,
		Status:       string(sub.Status),
		QueuedAt:     sub.QueuedAt.UnixMilli(),
	})
}

// Get returns a submission and its outcome.
func (h *SubmissionController) Get(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	sub, err := h.submissions.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sub)
}

// GetStatus returns the latest status of a submission.
func (h *SubmissionController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	status, err := h.submissions.GetStatus(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

// GetResults returns per-case judging detail.
func (h *SubmissionController) GetResults(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	cases, err := h.submissions.GetCaseResults(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CaseResultsResponse{SubmissionID: submissionID, Cases: cases})
}

// ListByUser returns a page of a user's submissions, newest first.
func (h *SubmissionController) ListByUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		response.BadRequest(c, "Invalid user id")
		return
	}
	page, err := queryInt(c, "page", 0)
	if err != nil {
		response.BadRequest(c, "Invalid page")
		return
	}
	size, err := queryInt(c, "size", 0)
	if err != nil {
		response.BadRequest(c, "Invalid size")
		return
	}
	items, total, err := h.submissions.ListUserSubmissions(c.Request.Context(), userID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)
	summaries := make([]SubmissionSummary, len(items))
	for i := range items {
		summaries[i] = summarize(&items[i])
	}
	response.SuccessWithPagination(c, summaries, total, page, size)
}

// Stream upgrades to a websocket that receives status frames until the
// submission is final.
func (h *SubmissionController) Stream(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	if err := h.streamer.Serve(c.Writer, c.Request, submissionID); err != nil {
		logger.Warn(c.Request.Context(), "status stream ended", zap.String("submission_id", submissionID), zap.Error(err))
	}
}

// userIDOf prefers the identity set by upstream middleware.
func userIDOf(c *gin.Context, fallback string) string {
	if v, ok := c.Get(string(contextkey.UserID)); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(fallback)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func summarize(s *submodel.Submission) SubmissionSummary {
	return SubmissionSummary{
		SubmissionID:    s.SubmissionID,
		QuestionID:      s.QuestionID,
		Language:        string(s.Language),
		Status:          string(s.Status),
		Verdict:         string(s.Verdict),
		RuntimeMs:       s.RuntimeMs,
		MemoryKB:        s.MemoryKB,
		PassedTestCases: s.PassedTestCases,
		TotalTestCases:  s.TotalTestCases,
		QueuedAt:        s.QueuedAt.UnixMilli(),
	}
}

// SubmitRequest is the SUBMIT payload.
type SubmitRequest struct {
	UserID     string `json:"userId"`
	QuestionID int64  `json:"questionId" binding:"required"`
	Language   string `json:"language" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

// SubmitResponse acknowledges a queued submission.
type SubmitResponse struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
	QueuedAt     int64  `json:"queuedAt"`
}

// SubmissionSummary is one row of a submission listing.
type SubmissionSummary struct {
	SubmissionID    string `json:"submissionId"`
	QuestionID      int64  `json:"questionId"`
	Language        string `json:"language"`
	Status          string `json:"status"`
	Verdict         string `json:"verdict,omitempty"`
	RuntimeMs       int64  `json:"runtimeMs"`
	MemoryKB        int64  `json:"memoryKb"`
	PassedTestCases int    `json:"passedTestCases"`
	TotalTestCases  int    `json:"totalTestCases"`
	QueuedAt        int64  `json:"queuedAt"`
}

// CaseResultsResponse carries the per-case detail of a submission.
type CaseResultsResponse struct {
	SubmissionID string               `json:"submissionId"`
	Cases        []verdict.CaseResult `json:"cases"`
}
