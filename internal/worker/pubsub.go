package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Outcome tells the listener what to do with a message.
type Outcome int

const (
	// Ack drops the message: the job ran, or it can never run.
	Ack Outcome = iota
	// Nack asks Pub/Sub to redeliver after the subscription's backoff.
	Nack
)

func (o Outcome) String() string {
	if o == Nack {
		return "nack"
	}
	return "ack"
}

// ListenerConfig holds configuration for a Listener.
type ListenerConfig struct {
	ProjectID    string
	Subscription string
	Dispatcher   *Dispatcher
	Logger       zerolog.Logger
}

// Listener receives job messages from one subscription and runs them one
// at a time. A snapshot refresh already paces its WAQI calls, so parallel
// jobs would only compete for the same rate budget.
type Listener struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	logger       zerolog.Logger
}

// NewListener connects to Pub/Sub.
func NewListener(ctx context.Context, cfg ListenerConfig) (*Listener, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client for %s: %w", cfg.ProjectID, err)
	}

	sub := client.Subscriber(cfg.Subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.MaxExtension = 15 * time.Minute

	return &Listener{
		client:       client,
		subscriber:   sub,
		subscription: cfg.Subscription,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger.With().Str("subscription", cfg.Subscription).Logger(),
	}, nil
}

// Run blocks until ctx is cancelled or receiving fails.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("listening for jobs")
	return l.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		log := l.logger.With().Str("message_id", msg.ID).Logger()
		if msg.DeliveryAttempt != nil {
			log = log.With().Int("delivery_attempt", *msg.DeliveryAttempt).Logger()
		}

		if Handle(ctx, l.dispatcher, msg.Data, msg.Attributes, log) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close releases the client.
func (l *Listener) Close() error {
	return l.client.Close()
}

// Handle decodes one message and dispatches it. The job type may come from
// the body or, for messages published by Cloud Scheduler with an empty
// body, from the job_type attribute. Bodies that do not decode and unknown
// job types are acked since redelivery cannot fix them; failed jobs are
// nacked.
func Handle(ctx context.Context, d *Dispatcher, data []byte, attrs map[string]string, log zerolog.Logger) Outcome {
	var msg JobMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Int("size", len(data)).Msg("dropping undecodable job message")
			return Ack
		}
	}
	if msg.JobType == "" {
		msg.JobType = attrs["job_type"]
	}

	log = log.With().Str("job_type", msg.JobType).Logger()
	start := time.Now()

	switch err := d.Dispatch(ctx, msg); {
	case errors.Is(err, ErrUnknownJobType):
		log.Warn().Msg("dropping job of unknown type")
		return Ack
	case err != nil:
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed, will be redelivered")
		return Nack
	}

	log.Info().Dur("duration", time.Since(start)).Msg("job done")
	return Ack
}
