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
	"horse.fit/sportwire/internal/digest"
	"horse.fit/sportwire/internal/telegram"
)

func runDigest(args []string) int {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	period := fs.String("period", digest.PeriodDaily, "Digest period: daily or weekly")
	limit := fs.Int("limit", 0, "Maximum stories (defaults to DIGEST_DEFAULT_LIMIT)")
	send := fs.Bool("send", false, "Send the digest to the configured channel")
	exportDir := fs.String("export-dir", "", "Write markdown and HTML exports to this directory")
	preview := fs.Bool("preview", false, "Print the rendered thread instead of sending")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "digest does not accept positional arguments")
		return 2
	}

	switch *period {
	case digest.PeriodDaily, digest.PeriodWeekly:
	default:
		fmt.Fprintln(os.Stderr, "--period must be daily or weekly")
		return 2
	}

	rt, err := connectRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	loc, err := rt.cfg.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timezone: %v\n", err)
		return 2
	}

	storyLimit := *limit
	if storyLimit <= 0 {
		storyLimit = rt.cfg.DigestDefaultLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	builder := digest.NewBuilder(rt.pool, loc, rt.logger)
	result, err := builder.Build(ctx, *period, time.Time{}, time.Time{}, storyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build digest: %v\n", err)
		return 1
	}
	if len(result.Items) == 0 {
		fmt.Fprintln(os.Stderr, "No stories in the digest window")
		return 1
	}

	digestID, err := builder.Store(ctx, result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to store digest: %v\n", err)
		return 1
	}

	var sender *telegram.Sender
	if *send {
		if strings.TrimSpace(rt.cfg.BotToken) == "" {
			fmt.Fprintln(os.Stderr, "TG_BOT_TOKEN is required for --send")
			return 2
		}
		if rt.cfg.ChannelID == "" {
			fmt.Fprintln(os.Stderr, "TG_CHANNEL_ID is required for --send")
			return 2
		}
		sender = newTelegramSender(rt)
	}

	deliverer := digest.NewDeliverer(rt.pool, sender, loc, rt.logger)

	if *exportDir != "" {
		paths, err := deliverer.Export(result, *exportDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export digest: %v\n", err)
			return 1
		}
		for _, path := range paths {
			fmt.Println(path)
		}
	}

	if *preview {
		for i, msg := range digest.Preview(result, loc, rt.cfg.DigestThreadChunk) {
			fmt.Printf("--- message %d (%s) ---\n%s\n", i+1, msg.Mode, msg.Text)
		}
	}

	if *send {
		if err := deliverer.SendToChannel(ctx, digestID, result, rt.cfg.ChannelID, rt.cfg.DigestThreadChunk); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to send digest: %v\n", err)
			return 1
		}
		fmt.Printf("digest %d sent with %d stories\n", digestID, len(result.Items))
		return 0
	}

	fmt.Printf("digest %d built with %d stories (%s)\n", digestID, len(result.Items), result.Title)
	return 0
}
