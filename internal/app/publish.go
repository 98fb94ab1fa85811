package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/compose"
	"horse.fit/sportwire/internal/publish"
	"horse.fit/sportwire/internal/telegram"
)

func runPublish(args []string) int {
	if len(args) == 0 {
		printPublishUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printPublishUsage()
		return 0
	case "enqueue":
		return runPublishEnqueue(args[1:])
	case "process":
		return runPublishProcess(args[1:])
	case "loop":
		return runPublishLoop(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown publish action: %s\n\n", args[0])
		printPublishUsage()
		return 2
	}
}

func runPublishEnqueue(args []string) int {
	fs := flag.NewFlagSet("publish enqueue", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	storyID := fs.Int64("story-id", 0, "Queue this story instead of the recent set")
	articleID := fs.Int64("article-id", 0, "Queue this article instead of the recent set")
	priority := fs.Int("priority", 0, "Queue priority for --story-id/--article-id")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "publish enqueue does not accept positional arguments")
		return 2
	}
	if *storyID > 0 && *articleID > 0 {
		fmt.Fprintln(os.Stderr, "--story-id and --article-id are mutually exclusive")
		return 2
	}

	scheduler, rt, code := buildScheduler(envLoader, false)
	if code != 0 {
		return code
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *storyID > 0 || *articleID > 0 {
		itemType, itemID := publish.ItemTypeStory, *storyID
		if *articleID > 0 {
			itemType, itemID = publish.ItemTypeArticle, *articleID
		}
		queueID, already, err := scheduler.EnqueueOne(ctx, itemType, itemID, *priority)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Enqueue failed: %v\n", err)
			return 1
		}
		if already {
			fmt.Printf("already queued or sent within the dedup window: %s %d\n", itemType, itemID)
			return 0
		}
		fmt.Printf("enqueued queue_id=%d %s=%d\n", queueID, itemType, itemID)
		return 0
	}

	result, err := scheduler.EnqueueRecentStories(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Enqueue failed: %v\n", err)
		return 1
	}

	fmt.Printf("considered=%d enqueued=%d skipped=%d\n", result.Considered, result.Enqueued, result.Skipped)
	return 0
}

func runPublishProcess(args []string) int {
	fs := flag.NewFlagSet("publish process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	mode := fs.String("mode", "html", "Render mode: html or markdown")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "publish process does not accept positional arguments")
		return 2
	}

	parseMode, err := compose.NormalizeMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
		return 2
	}

	scheduler, rt, code := buildScheduler(envLoader, true)
	if code != 0 {
		return code
	}
	defer rt.close()
	scheduler.SetMode(parseMode)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := scheduler.ProcessOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dispatch failed: %v\n", err)
		return 1
	}

	switch {
	case result.Dispatched:
		fmt.Printf("dispatched queue_id=%d message_id=%d\n", result.QueueID, result.MessageID)
	case result.Blocked != "":
		fmt.Printf("blocked by %s gate\n", result.Blocked)
	default:
		fmt.Println("queue is empty")
	}
	return 0
}

func runPublishLoop(args []string) int {
	fs := flag.NewFlagSet("publish loop", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	interval := fs.Duration("interval", 0, "Dispatch interval (defaults to PUBLISH_INTERVAL_SEC)")
	mode := fs.String("mode", "html", "Render mode: html or markdown")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "publish loop does not accept positional arguments")
		return 2
	}

	parseMode, err := compose.NormalizeMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
		return 2
	}

	scheduler, rt, code := buildScheduler(envLoader, true)
	if code != 0 {
		return code
	}
	defer rt.close()
	scheduler.SetMode(parseMode)

	loopInterval := *interval
	if loopInterval <= 0 {
		loopInterval = time.Duration(rt.cfg.PublishIntervalSec) * time.Second
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := scheduler.Loop(ctx, loopInterval); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Publish loop failed: %v\n", err)
		return 1
	}
	return 0
}

// buildScheduler wires the publish scheduler. A Telegram sender is attached
// only when requireSender is set, so enqueue-only runs work without a token.
func buildScheduler(envLoader *cli.EnvLoader, requireSender bool) (*publish.Scheduler, *runtime, int) {
	rt, err := connectRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, 1
	}

	var sender *telegram.Sender
	if requireSender {
		if strings.TrimSpace(rt.cfg.BotToken) == "" {
			rt.close()
			fmt.Fprintln(os.Stderr, "TG_BOT_TOKEN is required for dispatching")
			return nil, nil, 2
		}
		sender = newTelegramSender(rt)
	}

	scheduler, err := publish.NewScheduler(rt.pool, rt.cfg, sender, rt.logger)
	if err != nil {
		rt.close()
		fmt.Fprintf(os.Stderr, "Failed to build scheduler: %v\n", err)
		return nil, nil, 2
	}
	return scheduler, rt, 0
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printPublishUsage() {
	fmt.Fprintln(os.Stderr, "sportwire publish")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  sportwire publish <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  enqueue   Queue recently updated stories for publication")
	fmt.Fprintln(os.Stderr, "  process   Dispatch at most one due queue row")
	fmt.Fprintln(os.Stderr, "  loop      Dispatch continuously on the publish interval")
}
