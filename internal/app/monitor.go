package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/monitor"
	"horse.fit/sportwire/internal/telegram"
)

func runMonitor(args []string) int {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	dryRun := fs.Bool("dry-run", false, "Evaluate thresholds without delivering alerts")
	loop := fs.Bool("loop", false, "Keep collecting on a fixed cadence")
	interval := fs.Duration("interval", 5*time.Minute, "Collection interval for --loop")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "monitor does not accept positional arguments")
		return 2
	}

	rt, err := connectRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	var sender *telegram.Sender
	if strings.TrimSpace(rt.cfg.BotToken) != "" {
		sender = newTelegramSender(rt)
	}

	service := monitor.NewService(rt.pool, rt.cfg, sender, rt.logger)

	if *loop {
		ctx, cancel := signalContext()
		defer cancel()

		if err := service.Loop(ctx, *interval, *dryRun); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Monitor loop failed: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	samples, alerts, err := service.RunOnce(ctx, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Monitor pass failed: %v\n", err)
		return 1
	}

	if err := printJSON(map[string]any{"samples": samples, "alerts": alerts}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	if len(alerts) > 0 {
		return 3
	}
	return 0
}
