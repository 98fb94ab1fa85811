package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/globaltime"
)

func runStories(args []string) int {
	fs := flag.NewFlagSet("stories", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	days := fs.Int("days", 7, "How many days back to list")
	limit := fs.Int("limit", 50, "Maximum stories to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stories does not accept positional arguments")
		return 2
	}
	if *days <= 0 || *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--days and --limit must be > 0")
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

	since := globaltime.UTC().AddDate(0, 0, -*days)
	stories, err := pool.ListRecentStories(ctx, since, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query stories: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stories); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(stories))
	for _, story := range stories {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", story.StoryID),
			truncateForTable(story.Title, 80),
			formatUTCTimestamp(story.CreatedAt),
			formatUTCTimestamp(story.UpdatedAt),
		})
	}

	if err := writeTable([]string{"story_id", "title", "created_at", "updated_at"}, tableRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
