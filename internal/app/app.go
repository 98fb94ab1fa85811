package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "sync":
		return runSync(args[1:])
	case "cluster":
		return runCluster(args[1:])
	case "publish":
		return runPublish(args[1:])
	case "edit":
		return runEdit(args[1:])
	case "append":
		return runAppend(args[1:])
	case "digest":
		return runDigest(args[1:])
	case "monitor":
		return runMonitor(args[1:])
	case "scheduler":
		return runScheduler(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "articles":
		return runArticles(args[1:])
	case "stories":
		return runStories(args[1:])
	case "story":
		return runStoryDetail(args[1:])
	case "queue":
		return runQueue(args[1:])
	case "stats":
		return runStats(args[1:])
	case "hash-password":
		return runHashPassword(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "sportwire CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  sportwire <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  sync       Crawl the news listing up to the stored anchor")
	fmt.Fprintln(os.Stderr, "  cluster    Group recent articles into stories")
	fmt.Fprintln(os.Stderr, "  publish    Enqueue stories and dispatch the publish queue")
	fmt.Fprintln(os.Stderr, "  edit       Edit a published channel message in place")
	fmt.Fprintln(os.Stderr, "  append     Post an addendum as a reply to a published message")
	fmt.Fprintln(os.Stderr, "  digest     Build, export, or send a daily/weekly digest")
	fmt.Fprintln(os.Stderr, "  monitor    Collect pipeline metrics and raise alerts")
	fmt.Fprintln(os.Stderr, "  scheduler  Run sync, cluster, publish, and monitor loops")
	fmt.Fprintln(os.Stderr, "  validate   Validate article JSON files against the export schema")
	fmt.Fprintln(os.Stderr, "  serve      Start the admin HTTP API")
	fmt.Fprintln(os.Stderr, "  articles   List ingested articles")
	fmt.Fprintln(os.Stderr, "  stories    List recent stories")
	fmt.Fprintln(os.Stderr, "  story      Show one story with its articles")
	fmt.Fprintln(os.Stderr, "  queue      List publish queue rows")
	fmt.Fprintln(os.Stderr, "  stats      Show pipeline totals and today's throughput")
	fmt.Fprintln(os.Stderr, "  hash-password  Hash an admin password for ADMIN_PASSWORD_HASH")
	fmt.Fprintln(os.Stderr, "  daemon     Install or control systemd units")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"sportwire <command> -h\" for command-specific flags.")
}
