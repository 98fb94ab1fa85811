package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/cluster"
	"horse.fit/sportwire/internal/fetch"
	"horse.fit/sportwire/internal/monitor"
	"horse.fit/sportwire/internal/publish"
	"horse.fit/sportwire/internal/tags"
	"horse.fit/sportwire/internal/telegram"
)

// runScheduler runs the whole pipeline as one long-lived process: a crawl
// and cluster pass on the sync interval, queue dispatch on the publish
// interval, and metric collection on the monitor interval.
func runScheduler(args []string) int {
	fs := flag.NewFlagSet("scheduler", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	syncInterval := fs.Duration("sync-interval", 10*time.Minute, "Crawl and cluster interval")
	monitorInterval := fs.Duration("monitor-interval", 5*time.Minute, "Metric collection interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "scheduler does not accept positional arguments")
		return 2
	}
	if *syncInterval <= 0 || *monitorInterval <= 0 {
		fmt.Fprintln(os.Stderr, "intervals must be > 0")
		return 2
	}

	scheduler, rt, code := buildScheduler(envLoader, true)
	if code != 0 {
		return code
	}
	defer rt.close()

	loc, err := rt.cfg.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timezone: %v\n", err)
		return 2
	}

	tagService := tags.NewService(rt.pool, rt.logger)
	fetchService := fetch.NewService(rt.pool, fetch.NewClient(), tagService, loc, rt.logger)
	clusterService := cluster.NewService(rt.pool, rt.logger)

	var monitorSender *telegram.Sender
	if strings.TrimSpace(rt.cfg.BotToken) != "" {
		monitorSender = newTelegramSender(rt)
	}
	monitorService := monitor.NewService(rt.pool, rt.cfg, monitorSender, rt.logger)

	ctx, cancel := signalContext()
	defer cancel()

	publishInterval := time.Duration(rt.cfg.PublishIntervalSec) * time.Second

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*syncInterval)
		defer ticker.Stop()

		for {
			runSyncPass(ctx, rt, fetchService, clusterService, scheduler)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Loop(ctx, publishInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = monitorService.Loop(ctx, *monitorInterval, false)
	}()

	rt.logger.Info().
		Dur("sync_interval", *syncInterval).
		Dur("publish_interval", publishInterval).
		Dur("monitor_interval", *monitorInterval).
		Msg("scheduler started")

	wg.Wait()
	rt.logger.Info().Msg("scheduler stopped")
	return 0
}

func runSyncPass(ctx context.Context, rt *runtime, fetchService *fetch.Service, clusterService *cluster.Service, scheduler *publish.Scheduler) {
	if ctx.Err() != nil {
		return
	}

	if _, err := fetchService.Run(ctx, fetch.Options{}); err != nil {
		rt.logger.Error().Err(err).Msg("sync pass failed")
		return
	}
	if _, err := clusterService.Run(ctx, cluster.DefaultWindow, cluster.DefaultCap); err != nil {
		rt.logger.Error().Err(err).Msg("cluster pass failed")
		return
	}
	if _, err := scheduler.EnqueueRecentStories(ctx); err != nil {
		rt.logger.Error().Err(err).Msg("enqueue pass failed")
	}
}
