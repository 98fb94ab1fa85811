package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/cluster"
)

func runCluster(args []string) int {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	window := fs.Duration("window", cluster.DefaultWindow, "How far back to look for articles")
	limit := fs.Int("limit", cluster.DefaultCap, "Maximum articles to cluster in one pass")
	dryRun := fs.Bool("dry-run", false, "Report clusters without writing stories or links")
	verbose := fs.Bool("verbose", false, "Log at debug level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "cluster does not accept positional arguments")
		return 2
	}
	if *window <= 0 || *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--window and --limit must be > 0")
		return 2
	}

	rt, err := connectRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	if *verbose {
		rt.logger = rt.logger.Level(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	service := cluster.NewService(rt.pool, rt.logger)
	service.SetDryRun(*dryRun)

	summary, err := service.Run(ctx, *window, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Clustering failed: %v\n", err)
		return 1
	}

	if err := printJSON(summary); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
