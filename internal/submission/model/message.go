package model

import (
	"time"

	"algojudge/internal/judging/verdict"
)

// SubmissionMessage is published to the submission topic.
type SubmissionMessage struct {
	SubmissionID string    `json:"submissionId"`
	QuestionID   int64     `json:"questionId"`
	UserID       string    `json:"userId"`
	Language     Language  `json:"language"`
	QueuedAt     time.Time `json:"queuedAt"`
}

// StatusSnapshot is the latest known state of a submission, kept in the
// status cache and published when it becomes final.
type StatusSnapshot struct {
	SubmissionID    string          `json:"submissionId"`
	Status          Status          `json:"status"`
	Verdict         verdict.Verdict `json:"verdict,omitempty"`
	RuntimeMs       int64           `json:"runtimeMs,omitempty"`
	MemoryKB        int64           `json:"memoryKb,omitempty"`
	PassedTestCases int             `json:"passedTestCases,omitempty"`
	TotalTestCases  int             `json:"totalTestCases,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	UpdatedAt       int64           `json:"updatedAt"`
}

// Snapshot returns the status view of s.
func (s *Submission) Snapshot(now time.Time) StatusSnapshot {
	return StatusSnapshot{
		SubmissionID:    s.SubmissionID,
		Status:          s.Status,
		Verdict:         s.Verdict,
		RuntimeMs:       s.RuntimeMs,
		MemoryKB:        s.MemoryKB,
		PassedTestCases: s.PassedTestCases,
		TotalTestCases:  s.TotalTestCases,
		ErrorMessage:    s.ErrorMessage,
		UpdatedAt:       now.UnixMilli(),
	}
}

// StatusEventType classifies a status event.
type StatusEventType string

// StatusEventFinal is emitted once a submission reaches a final status.
const StatusEventFinal StatusEventType = "final"

// StatusEvent is published to the status topic.
type StatusEvent struct {
	Type      StatusEventType `json:"type"`
	Status    StatusSnapshot  `json:"status"`
	CreatedAt int64           `json:"createdAt"`
}
