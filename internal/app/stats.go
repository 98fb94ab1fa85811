package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/sportwire/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	dayStart := defaultUTCDay()
	_, dayEnd := utcDayBounds(dayStart)

	stats, err := pool.QueryPipelineStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query pipeline stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	totalsRows := [][]string{
		{"articles", fmt.Sprintf("%d", stats.Totals.Articles)},
		{"tags", fmt.Sprintf("%d", stats.Totals.Tags)},
		{"stories", fmt.Sprintf("%d", stats.Totals.Stories)},
		{"digests", fmt.Sprintf("%d", stats.Totals.Digests)},
	}
	if err := writeTable([]string{"total", "value"}, totalsRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render totals table: %v\n", err)
		return 1
	}

	fmt.Println()
	throughputRows := [][]string{
		{"articles_ingested_today", fmt.Sprintf("%d", stats.Throughput.ArticlesIngestedToday)},
		{"stories_created_today", fmt.Sprintf("%d", stats.Throughput.StoriesCreatedToday)},
		{"sent_today", fmt.Sprintf("%d", stats.Throughput.SentToday)},
		{"queue_depth", fmt.Sprintf("%d", stats.Throughput.QueueDepth)},
		{"pending_no_fingerprint", fmt.Sprintf("%d", stats.Throughput.PendingNoFingerprint)},
	}
	if err := writeTable([]string{"metric", "value"}, throughputRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render throughput table: %v\n", err)
		return 1
	}

	return 0
}
