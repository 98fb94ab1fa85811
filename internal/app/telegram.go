package app

import (
	"context"

	"horse.fit/sportwire/internal/globaltime"
	"horse.fit/sportwire/internal/telegram"
)

// rateLimitMetric is the monitor_logs metric name written once per
// observed Telegram 429. The monitor counts these rows over a window.
const rateLimitMetric = "tg_rate_limit_hit"

// newTelegramSender builds a sender whose rate-limit hits land in
// monitor_logs so the monitor can report them.
func newTelegramSender(rt *runtime) *telegram.Sender {
	sender := telegram.NewSender(telegram.NewClient(rt.cfg.BotToken), rt.logger)
	sender.OnRateLimit(func(ctx context.Context) {
		if err := rt.pool.InsertMonitorLog(ctx, globaltime.Now().UTC(), rateLimitMetric, 1, nil); err != nil {
			rt.logger.Warn().Err(err).Msg("record rate limit hit failed")
		}
	})
	return sender
}
