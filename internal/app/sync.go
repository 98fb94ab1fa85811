package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/fetch"
	"horse.fit/sportwire/internal/tags"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	anchor := fs.String("anchor-url", "", "Override the stored anchor URL")
	maxPages := fs.Int("max-pages", 0, "Maximum listing pages to walk (0 uses the default)")
	maxArticles := fs.Int("max-articles", 0, "Maximum articles to process (0 means no cap)")
	dryRun := fs.Bool("dry-run", false, "Fetch and parse without writing to the database")
	smoke := fs.Bool("smoke", false, "Walk the first listing page only, no writes")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "sync does not accept positional arguments")
		return 2
	}
	if *maxPages < 0 || *maxArticles < 0 {
		fmt.Fprintln(os.Stderr, "--max-pages and --max-articles must be >= 0")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tagService := tags.NewService(rt.pool, rt.logger)
	service := fetch.NewService(rt.pool, fetch.NewClient(), tagService, loc, rt.logger)

	summary, err := service.Run(ctx, fetch.Options{
		AnchorURL:   *anchor,
		MaxPages:    *maxPages,
		MaxArticles: *maxArticles,
		DryRun:      *dryRun,
		Smoke:       *smoke,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		return 1
	}

	if err := printJSON(summary); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
