package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/publish"
)

type storyDetailOutput struct {
	Story    db.StoryRecord        `json:"story"`
	Articles []db.StoryArticleItem `json:"articles"`
	Publish  *db.PublishMapRecord  `json:"publish,omitempty"`
}

func runStoryDetail(args []string) int {
	fs := flag.NewFlagSet("story", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	limit := fs.Int("limit", 50, "Maximum articles to show")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: story [flags] <story_id>")
		return 2
	}

	storyID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || storyID <= 0 {
		fmt.Fprintln(os.Stderr, "story_id must be a positive integer")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
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

	story, err := pool.GetStory(ctx, storyID)
	if err != nil {
		if db.IsNoRows(err) {
			fmt.Fprintf(os.Stderr, "Story %d not found\n", storyID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to query story: %v\n", err)
		return 1
	}

	articles, err := pool.ListStoryArticles(ctx, storyID, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query story articles: %v\n", err)
		return 1
	}

	output := storyDetailOutput{Story: story, Articles: articles}

	publishMap, found, err := pool.GetPublishMap(ctx, publish.ItemTypeStory, storyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query publish map: %v\n", err)
		return 1
	}
	if found {
		output.Publish = &publishMap
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("story_id: %d\n", story.StoryID)
	fmt.Printf("title: %s\n", story.Title)
	fmt.Printf("created_at: %s\n", formatUTCTimestamp(story.CreatedAt))
	fmt.Printf("updated_at: %s\n", formatUTCTimestamp(story.UpdatedAt))
	if output.Publish != nil {
		fmt.Printf("message_id: %d (sent %s)\n", output.Publish.MessageID, formatUTCTimestamp(output.Publish.SentAt))
	}
	fmt.Println()

	tableRows := make([][]string, 0, len(articles))
	for _, article := range articles {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", article.NewsID),
			truncateForTable(article.Title, 80),
			formatUTCTimestampPtr(article.PublishedAt),
		})
	}

	if err := writeTable([]string{"news_id", "title", "published_at"}, tableRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
