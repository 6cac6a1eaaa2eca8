package services

import (
	"context"
	"encoding/json"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/internal/services/outbox"
	"github.com/mapcrew/backend/usecase"
)

// ReviewNotifier hands review notifications to the notification service over
// a Redis list. Failed handoffs go to the outbox.
type ReviewNotifier struct {
	client *redislib.Client
	store  *outbox.Store
	queue  string
	logger *zap.Logger
}

func NewReviewNotifier(client *redislib.Client, store *outbox.Store, queue string, logger *zap.Logger) *ReviewNotifier {
	if queue == "" {
		queue = "review:notifications"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewNotifier{
		client: client,
		store:  store,
		queue:  queue,
		logger: logger,
	}
}

type notificationEnvelope struct {
	ActorID     int64               `json:"actor_id"`
	ActorName   string              `json:"actor_name"`
	RecipientID int64               `json:"recipient_id"`
	Status      domain.ReviewStatus `json:"review_status"`
	TaskID      int64               `json:"task_id"`
	ChallengeID int64               `json:"challenge_id"`
	Comment     string              `json:"comment,omitempty"`
	At          time.Time           `json:"at"`
}

func (n *ReviewNotifier) CreateReviewNotification(ctx context.Context, actor domain.User, recipientID int64, status domain.ReviewStatus, task *domain.Task, comment string) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(notificationEnvelope{
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		RecipientID: recipientID,
		Status:      status,
		TaskID:      task.ID,
		ChallengeID: task.ChallengeID,
		Comment:     comment,
		At:          time.Now(),
	})
	if err != nil {
		return err
	}

	if err := n.client.LPush(ctx, n.queue, payload).Err(); err != nil {
		n.logger.Warn("notification handoff failed, buffering",
			zap.Int64("recipient", recipientID), zap.Error(err))
		return n.store.Enqueue(outbox.Item{
			Channel: outbox.ChannelNotification,
			Kind:    status.String(),
			Payload: payload,
		})
	}
	return nil
}

var _ usecase.Notifier = (*ReviewNotifier)(nil)
