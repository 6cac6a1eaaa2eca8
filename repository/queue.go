package repository

import (
	"context"

	"github.com/mapcrew/backend/domain"
)

// QueueQuery parameterizes the ranked review-queue view.
type QueueQuery struct {
	User domain.User
	// IncludeDisputed widens the status filter from {Requested} to
	// {Requested, Disputed}.
	IncludeDisputed bool
	// ExcludeOtherReviewers drops tasks previously reviewed by someone else.
	ExcludeOtherReviewers bool
	Filters               domain.FilterSet
	SortKey               string
	SortDir               string
	Limit                 int
	Offset                int
}

// QueueRow is a queue entry with its dense rank under the query's ordering.
type QueueRow struct {
	Task   domain.Task
	RowNum int64
}

// StatusCount is one bucket of the review metrics aggregation.
type StatusCount struct {
	Status domain.ReviewStatus `json:"review_status"`
	Count  int64               `json:"count"`
}

// ReviewQueueRepository builds the ordered, visibility-filtered view over
// requestable tasks.
type ReviewQueueRepository interface {
	// Next returns the first queue entry after the rank of lastTaskID under
	// the query's ordering. A lastTaskID of zero, or one that is no longer
	// in the view, resumes from the top.
	Next(ctx context.Context, q QueueQuery, lastTaskID int64) (*domain.Task, error)

	// ListRequested pages through the caller-visible review queue.
	ListRequested(ctx context.Context, q QueueQuery) ([]QueueRow, error)

	// ListReviewed pages through tasks the filter set matches among already
	// performed reviews (terminal statuses).
	ListReviewed(ctx context.Context, q QueueQuery) ([]QueueRow, error)

	// CountByStatus aggregates matching tasks per review status.
	CountByStatus(ctx context.Context, q QueueQuery) ([]StatusCount, error)
}
