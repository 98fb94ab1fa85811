package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const maxSendAttempts = 3

// ErrRetryExhausted marks a send that stayed rate limited through every
// attempt.
var ErrRetryExhausted = errors.New("telegram send retries exhausted")

// Sender wraps the client with rate-limit retry behavior.
type Sender struct {
	client      *Client
	log         zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
	onRateLimit func(ctx context.Context)
}

// OnRateLimit registers a hook invoked once per observed 429, before the
// retry pause. Used to record rate-limit hits for monitoring.
func (s *Sender) OnRateLimit(fn func(ctx context.Context)) {
	s.onRateLimit = fn
}

func (s *Sender) recordRateLimit(ctx context.Context) {
	if s.onRateLimit != nil {
		s.onRateLimit(ctx)
	}
}

// NewSender builds a sender over a client.
func NewSender(client *Client, log zerolog.Logger) *Sender {
	return &Sender{
		client: client,
		log:    log.With().Str("component", "telegram").Logger(),
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Send delivers a message, pausing and retrying up to three attempts when
// the API answers 429. The pause is the server's retry_after plus up to 30%
// jitter. Any other error is returned immediately.
func (s *Sender) Send(ctx context.Context, req SendMessageRequest) (MessageRef, error) {
	var rateErr *RateLimitedError
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		ref, err := s.client.SendMessage(ctx, req)
		if err == nil {
			return ref, nil
		}
		if !errors.As(err, &rateErr) {
			return MessageRef{}, err
		}
		s.recordRateLimit(ctx)

		if attempt == maxSendAttempts {
			break
		}
		pause := withJitter(rateErr.RetryAfter)
		s.log.Warn().
			Int("attempt", attempt).
			Dur("pause", pause).
			Msg("rate limited, pausing before retry")
		if err := s.sleep(ctx, pause); err != nil {
			return MessageRef{}, err
		}
	}
	return MessageRef{}, fmt.Errorf("%w: %s", ErrRetryExhausted, rateErr.Error())
}

// Edit rewrites a message with the same retry behavior as Send.
func (s *Sender) Edit(ctx context.Context, chatID string, messageID int64, text, parseMode string) error {
	var rateErr *RateLimitedError
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err := s.client.EditMessageText(ctx, chatID, messageID, text, parseMode)
		if err == nil {
			return nil
		}
		if !errors.As(err, &rateErr) {
			return err
		}
		s.recordRateLimit(ctx)

		if attempt == maxSendAttempts {
			break
		}
		pause := withJitter(rateErr.RetryAfter)
		s.log.Warn().
			Int("attempt", attempt).
			Dur("pause", pause).
			Msg("rate limited, pausing before edit retry")
		if err := s.sleep(ctx, pause); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrRetryExhausted, rateErr.Error())
}

func withJitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base)*3/10 + 1))
	return base + jitter
}
