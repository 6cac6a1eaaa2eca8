package review

import (
	"context"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

// SearchOptions parameterizes the review-queue views. The filter set is an
// opaque predicate the repositories compile; sort key and direction resolve
// through whitelists.
type SearchOptions struct {
	IncludeDisputed       bool
	ExcludeOtherReviewers bool
	Filters               domain.FilterSet
	SortKey               string
	SortDir               string
	Limit                 int
	Offset                int
}

func (s *Service) queueQuery(user domain.User, opts SearchOptions) repository.QueueQuery {
	return repository.QueueQuery{
		User:                  user,
		IncludeDisputed:       opts.IncludeDisputed,
		ExcludeOtherReviewers: opts.ExcludeOtherReviewers,
		Filters:               opts.Filters,
		SortKey:               opts.SortKey,
		SortDir:               opts.SortDir,
		Limit:                 opts.Limit,
		Offset:                opts.Offset,
	}
}

// NextTask hands the reviewer their next queue entry. With lastTaskID set,
// the ranked view is re-derived and the fetch resumes immediately after that
// id's rank; an id that left the view restarts from the top. Returns
// (nil, nil) when the queue is empty.
func (s *Service) NextTask(ctx context.Context, user domain.User, opts SearchOptions, lastTaskID int64) (*domain.Task, error) {
	if !user.CanReview() {
		return nil, domain.ErrNotReviewer
	}
	return s.queue.Next(ctx, s.queueQuery(user, opts), lastTaskID)
}

// ListRequested pages the caller-visible review queue.
func (s *Service) ListRequested(ctx context.Context, user domain.User, opts SearchOptions) ([]repository.QueueRow, error) {
	if !user.CanReview() {
		return nil, domain.ErrNotReviewer
	}
	return s.queue.ListRequested(ctx, s.queueQuery(user, opts))
}

// ListReviewed pages already performed reviews matching the filter set.
func (s *Service) ListReviewed(ctx context.Context, user domain.User, opts SearchOptions) ([]repository.QueueRow, error) {
	if !user.CanReview() {
		return nil, domain.ErrNotReviewer
	}
	return s.queue.ListReviewed(ctx, s.queueQuery(user, opts))
}

// Metrics aggregates matching tasks per review status.
func (s *Service) Metrics(ctx context.Context, user domain.User, opts SearchOptions) ([]repository.StatusCount, error) {
	if !user.CanReview() {
		return nil, domain.ErrNotReviewer
	}
	return s.queue.CountByStatus(ctx, s.queueQuery(user, opts))
}

// TaskHistory returns the append-only review audit trail of one task.
func (s *Service) TaskHistory(ctx context.Context, taskID int64) ([]domain.ReviewHistoryEntry, error) {
	return s.history.ListByTask(ctx, taskID)
}
