package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
)

// Collaborator ports. The engine decides which calls to make; delivery,
// scoring math and comment storage live in other services.

// Permissions answers authorization questions about items the engine does
// not own. Implementations return a FORBIDDEN domain error on denial.
type Permissions interface {
	HasReadAccess(ctx context.Context, user domain.User, itemType string, itemID int64) error
	HasWriteAccess(ctx context.Context, user domain.User, itemType string, itemID int64) error
}

// ScoreUpdate carries one user-metrics adjustment.
type ScoreUpdate struct {
	UserID       int64
	TaskStatus   int
	ReviewStatus domain.ReviewStatus
	// IsRevision marks a correction of a previously credited review
	// (the dispute rollback path).
	IsRevision bool
	AsReviewer bool
	// ReviewStartMs is the claim timestamp in unix milliseconds; the metrics
	// service time-weights the reviewer's credit from it. Zero when the
	// update is not time-weighted.
	ReviewStartMs int64
}

// UserMetrics is the external scoring/leaderboard service.
type UserMetrics interface {
	UpdateUserScore(ctx context.Context, upd ScoreUpdate) error
}

// Notifier delivers review notifications to the counterpart user.
type Notifier interface {
	CreateReviewNotification(ctx context.Context, actor domain.User, recipientID int64, status domain.ReviewStatus, task *domain.Task, comment string) error
}

// Commenter stores task comments.
type Commenter interface {
	Create(ctx context.Context, user domain.User, taskID int64, text string, actionID string) error
}

// Realtime message kinds.
const (
	MessageReviewClaimed = "review.claimed"
	MessageReviewUpdate  = "review.update"
)

// Realtime pushes task+review snapshots to connected clients, fire-and-forget.
type Realtime interface {
	SendMessage(ctx context.Context, kind string, task *domain.Task) error
}

// Effects runs best-effort side channels. A failure is logged and swallowed;
// it never propagates to the primary operation, whose committed state is the
// durability boundary.
type Effects struct {
	logger *zap.Logger
}

// NewEffects builds the non-critical effect runner.
func NewEffects(logger *zap.Logger) *Effects {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Effects{logger: logger}
}

// Run executes fn and logs any failure under the effect name.
func (e *Effects) Run(ctx context.Context, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		e.logger.Warn("non-critical effect failed",
			zap.String("effect", name),
			zap.Error(err))
	}
}
