package services

import (
	"context"
	"encoding/json"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mapcrew/backend/internal/services/outbox"
	"github.com/mapcrew/backend/usecase"
)

// ScoreRelay forwards user-metrics adjustments to the leaderboard service
// over a Redis list. The engine only decides which calls to make; the math
// happens downstream.
type ScoreRelay struct {
	client *redislib.Client
	store  *outbox.Store
	queue  string
	logger *zap.Logger
}

func NewScoreRelay(client *redislib.Client, store *outbox.Store, queue string, logger *zap.Logger) *ScoreRelay {
	if queue == "" {
		queue = "review:score_updates"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreRelay{
		client: client,
		store:  store,
		queue:  queue,
		logger: logger,
	}
}

type scoreEnvelope struct {
	usecase.ScoreUpdate
	At time.Time `json:"at"`
}

func (r *ScoreRelay) UpdateUserScore(ctx context.Context, upd usecase.ScoreUpdate) error {
	payload, err := json.Marshal(scoreEnvelope{ScoreUpdate: upd, At: time.Now()})
	if err != nil {
		return err
	}

	if err := r.client.LPush(ctx, r.queue, payload).Err(); err != nil {
		r.logger.Warn("score handoff failed, buffering",
			zap.Int64("user_id", upd.UserID), zap.Error(err))
		return r.store.Enqueue(outbox.Item{
			Channel: outbox.ChannelScore,
			Kind:    upd.ReviewStatus.String(),
			Payload: payload,
		})
	}
	return nil
}

var _ usecase.UserMetrics = (*ScoreRelay)(nil)
