package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/config"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/globaltime"
	"horse.fit/sportwire/internal/telegram"
)

// metricDefinition binds a metric name to its collection query. The query
// takes the window start as $1 when windowed is set.
type metricDefinition struct {
	Name     string
	Query    string
	Window   time.Duration
	windowed bool
}

var metricDefinitions = []metricDefinition{
	{
		Name:     "news_1h",
		Query:    `SELECT COUNT(*) FROM sport.news WHERE created_at >= $1`,
		Window:   time.Hour,
		windowed: true,
	},
	{
		Name:     "news_24h",
		Query:    `SELECT COUNT(*) FROM sport.news WHERE created_at >= $1`,
		Window:   24 * time.Hour,
		windowed: true,
	},
	{
		Name:     "stories_24h",
		Query:    `SELECT COUNT(*) FROM sport.stories WHERE created_at >= $1`,
		Window:   24 * time.Hour,
		windowed: true,
	},
	{
		Name:  "queue_depth",
		Query: `SELECT COUNT(*) FROM sport.publish_queue WHERE status = 'queued'`,
	},
	{
		Name:     "sent_24h",
		Query:    `SELECT COUNT(*) FROM sport.publish_queue WHERE status = 'sent' AND sent_at >= $1`,
		Window:   24 * time.Hour,
		windowed: true,
	},
	{
		Name:     "errors_24h",
		Query:    `SELECT COUNT(*) FROM sport.publish_queue WHERE status = 'error' AND enqueued_at >= $1`,
		Window:   24 * time.Hour,
		windowed: true,
	},
	{
		Name:     "rate_limit_hits_1h",
		Query:    `SELECT COUNT(*) FROM sport.monitor_logs WHERE metric = 'tg_rate_limit_hit' AND ts_utc >= $1`,
		Window:   time.Hour,
		windowed: true,
	},
	{
		Name:     "edits_24h",
		Query:    `SELECT COUNT(*) FROM sport.publish_edits WHERE created_at >= $1`,
		Window:   24 * time.Hour,
		windowed: true,
	},
	{
		Name:     "digests_7d",
		Query:    `SELECT COUNT(*) FROM sport.digests WHERE created_at >= $1`,
		Window:   7 * 24 * time.Hour,
		windowed: true,
	},
}

// Sample is one collected metric value.
type Sample struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// Thresholds are the alerting bounds taken from config. Nil disables a
// bound.
type Thresholds struct {
	NewsMin1h *float64
	QueueMax  *float64
	SentMin24 *float64
}

// Service collects pipeline health metrics, stores them, and raises alerts.
type Service struct {
	pool   *db.Pool
	cfg    *config.Config
	sender *telegram.Sender
	log    zerolog.Logger
}

// NewService wires a monitor. sender may be nil for dry runs.
func NewService(pool *db.Pool, cfg *config.Config, sender *telegram.Sender, log zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		cfg:    cfg,
		sender: sender,
		log:    log.With().Str("component", "monitor").Logger(),
	}
}

// Collect gathers every metric and persists the samples.
func (s *Service) Collect(ctx context.Context) ([]Sample, error) {
	now := globaltime.Now().UTC()
	samples := make([]Sample, 0, len(metricDefinitions))

	for _, def := range metricDefinitions {
		var (
			count int64
			err   error
		)
		if def.windowed {
			count, err = s.pool.CountScalar(ctx, def.Query, now.Add(-def.Window))
		} else {
			count, err = s.pool.CountScalar(ctx, def.Query)
		}
		if err != nil {
			return samples, fmt.Errorf("collect %s: %w", def.Name, err)
		}

		sample := Sample{Metric: def.Name, Value: float64(count)}
		samples = append(samples, sample)
		if err := s.pool.InsertMonitorLog(ctx, now, sample.Metric, sample.Value, nil); err != nil {
			return samples, err
		}
	}

	s.log.Info().Int("metrics", len(samples)).Msg("metrics collected")
	return samples, nil
}

// EvaluateAlerts applies the thresholds to collected samples and returns
// one human-readable line per violation.
func EvaluateAlerts(samples []Sample, thresholds Thresholds) []string {
	byName := make(map[string]float64, len(samples))
	for _, sample := range samples {
		byName[sample.Metric] = sample.Value
	}

	alerts := make([]string, 0, 3)
	if thresholds.NewsMin1h != nil {
		if value, ok := byName["news_1h"]; ok && value < *thresholds.NewsMin1h {
			alerts = append(alerts, fmt.Sprintf("news_1h=%.0f below minimum %.0f", value, *thresholds.NewsMin1h))
		}
	}
	if thresholds.QueueMax != nil {
		if value, ok := byName["queue_depth"]; ok && value > *thresholds.QueueMax {
			alerts = append(alerts, fmt.Sprintf("queue_depth=%.0f above maximum %.0f", value, *thresholds.QueueMax))
		}
	}
	if thresholds.SentMin24 != nil {
		if value, ok := byName["sent_24h"]; ok && value < *thresholds.SentMin24 {
			alerts = append(alerts, fmt.Sprintf("sent_24h=%.0f below minimum %.0f", value, *thresholds.SentMin24))
		}
	}
	return alerts
}

// RunOnce collects metrics, evaluates thresholds, and delivers alerts when
// alerting is enabled and not in dry-run mode.
func (s *Service) RunOnce(ctx context.Context, dryRun bool) ([]Sample, []string, error) {
	samples, err := s.Collect(ctx)
	if err != nil {
		return samples, nil, err
	}

	alerts := EvaluateAlerts(samples, Thresholds{
		NewsMin1h: s.cfg.AlertNewsMin1h,
		QueueMax:  s.cfg.AlertQueueMax,
		SentMin24: s.cfg.AlertSentMin24,
	})
	if len(alerts) == 0 {
		return samples, nil, nil
	}

	s.log.Warn().Strs("alerts", alerts).Msg("thresholds violated")

	if !s.cfg.AlertEnabled || dryRun || s.sender == nil {
		return samples, alerts, nil
	}

	chat := s.cfg.AlertChat()
	if chat == "" {
		s.log.Warn().Msg("no alert chat configured, alerts not delivered")
		return samples, alerts, nil
	}

	text := "⚠️ Monitor alerts:\n" + strings.Join(alerts, "\n")
	if _, err := s.sender.Send(ctx, telegram.SendMessageRequest{ChatID: chat, Text: text}); err != nil {
		return samples, alerts, fmt.Errorf("deliver alerts: %w", err)
	}
	return samples, alerts, nil
}

// Loop runs monitoring passes on a fixed cadence until the context ends.
func (s *Service) Loop(ctx context.Context, interval time.Duration, dryRun bool) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("monitor loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("monitor loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := s.RunOnce(ctx, dryRun); err != nil {
				s.log.Error().Err(err).Msg("monitor pass failed")
			}
		}
	}
}
