package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/db"
)

func runQueue(args []string) int {
	fs := flag.NewFlagSet("queue", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	status := fs.String("status", "", "Filter by status: queued, sent, or error")
	limit := fs.Int("limit", 50, "Maximum rows to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "queue does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	statusFilter := strings.TrimSpace(strings.ToLower(*status))
	switch statusFilter {
	case "", "queued", "sent", "error":
	default:
		fmt.Fprintln(os.Stderr, "--status must be queued, sent, or error")
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

	items, err := pool.ListQueue(ctx, db.QueueListOptions{Status: statusFilter, Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query queue: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(items); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(items))
	for _, item := range items {
		messageID := ""
		if item.MessageID != nil {
			messageID = fmt.Sprintf("%d", *item.MessageID)
		}
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", item.QueueID),
			item.ItemType,
			fmt.Sprintf("%d", item.ItemID),
			fmt.Sprintf("%d", item.Priority),
			item.Status,
			formatUTCTimestamp(item.EnqueuedAt),
			formatUTCTimestampPtr(item.SentAt),
			messageID,
		})
	}

	if err := writeTable(
		[]string{"queue_id", "item_type", "item_id", "priority", "status", "enqueued_at", "sent_at", "message_id"},
		tableRows,
	); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
