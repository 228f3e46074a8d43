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
)

// JobEvent is broadcast when a job reaches a terminal state.
type JobEvent struct {
	Source  string         `json:"source"`
	Payload WebhookPayload `json:"payload"`
	SentAt  time.Time      `json:"sent_at"`
}

// JobEventPublisher fans terminal job events out to other services.
type JobEventPublisher interface {
	Publish(ctx context.Context, payload WebhookPayload) error
}

type brokerJobEvents struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewJobEventPublisher publishes on <channelBase>:jobs (Redis) and
// <channelBase>.jobs (NATS). Either broker may be nil.
func NewJobEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) JobEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":jobs"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".jobs"
	}

	return &brokerJobEvents{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "job_events").Logger(),
	}
}

func (p *brokerJobEvents) Publish(ctx context.Context, payload WebhookPayload) error {
	event := JobEvent{
		Source:  p.nodeID,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, data).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
