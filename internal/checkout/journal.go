package checkout

import (
	"context"
	"errors"
	"time"
)

type SubmissionStatus string

const (
	SubmissionStatusInProgress SubmissionStatus = "IN_PROGRESS"
	SubmissionStatusCompleted  SubmissionStatus = "COMPLETED"
	SubmissionStatusFailed     SubmissionStatus = "FAILED"
)

// String representation (for logging)
func (s SubmissionStatus) String() string {
	return string(s)
}

// Submission is one checkout attempt recorded before any order item is
// created. It carries the cart snapshot the attempt was started with, so a
// retry resumes from the unsent lines instead of replaying the whole cart.
type Submission struct {
	ID         string
	CustomerID int64
	OrderID    int64
	Reused     bool
	Snapshot   []byte
	Status     SubmissionStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SubmissionLine tracks one cart line inside a submission. Done flips once
// the backend confirms the order item.
type SubmissionLine struct {
	SubmissionID string
	LineIndex    int
	MenuItemID   int64
	Quantity     int
	Notes        string
	Done         bool
	OrderItemID  *int64
}

// OutboxEvent is an order-submitted notification waiting to be published.
type OutboxEvent struct {
	ID        int64
	Payload   []byte
	CreatedAt time.Time
}

var ErrNoOpenSubmission = errors.New("no open submission for customer")

// Journal persists submissions, their per-line progress and the outbox of
// order-submitted events.
type Journal interface {
	GetOpenSubmission(ctx context.Context, customerID int64) (*Submission, []SubmissionLine, error)
	CreateSubmission(ctx context.Context, sub *Submission, lines []SubmissionLine) error
	MarkLineDone(ctx context.Context, submissionID string, lineIndex int, orderItemID int64) error
	CompleteSubmission(ctx context.Context, submissionID string, eventPayload []byte) error
	FailSubmission(ctx context.Context, submissionID string) error

	GetUnprocessedEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
}
