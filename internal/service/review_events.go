package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/phybench-api/internal/models"
)

// ReviewEventType names the event emitted after a review commits.
const ReviewEventType = "problem.reviewed"

// ReviewEvent is broadcast once a review decision has been committed.
type ReviewEvent struct {
	ID             string               `json:"id"`
	Type           string               `json:"type"`
	Source         string               `json:"source"`
	ProblemID      uint                 `json:"problem_id"`
	ReviewerID     uint                 `json:"reviewer_id"`
	PreviousStatus models.ProblemStatus `json:"previous_status"`
	Status         models.ProblemStatus `json:"status"`
	Score          int                  `json:"score"`
	Awards         []ReviewEventAward   `json:"awards"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// ReviewEventAward mirrors one score event written by the review.
type ReviewEventAward struct {
	Tag    models.ScoreEventTag `json:"tag"`
	UserID uint                 `json:"user_id"`
	Score  int                  `json:"score"`
}

// ReviewEventPublisher fans review events out to downstream consumers.
type ReviewEventPublisher interface {
	Publish(ctx context.Context, event ReviewEvent) error
}

type reviewEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewReviewEventPublisher publishes to "<channelBase>:reviews" on redis and
// "<channelBase>.reviews" on NATS. Either transport may be nil.
func NewReviewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) ReviewEventPublisher {
	channel := ""
	subject := ""
	if base := strings.TrimSpace(channelBase); base != "" {
		channel = base + ":reviews"
		subject = strings.ReplaceAll(base, ":", ".") + ".reviews"
	}

	return &reviewEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "review_events").Logger(),
	}
}

func (p *reviewEventPublisher) Publish(ctx context.Context, event ReviewEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Type == "" {
		event.Type = ReviewEventType
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.Source = p.nodeID

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		p.logger.Debug().Str("event_id", event.ID).Uint("problem_id", event.ProblemID).Msg("review event published")
	}
	return errors.Join(errs...)
}
