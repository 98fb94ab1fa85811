package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"horse.fit/sportwire/internal/cli"
	"horse.fit/sportwire/internal/publish"
)

func runEdit(args []string) int {
	return runEditAction("edit", args)
}

func runAppend(args []string) int {
	return runEditAction("append", args)
}

func runEditAction(action string, args []string) int {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	itemType := fs.String("item-type", publish.ItemTypeStory, "Published item type: story or article")
	itemID := fs.Int64("item-id", 0, "Published item id (required)")
	text := fs.String("text", "", "New message text (reads stdin when empty)")
	fromRender := fs.String("from-render", "", "Render text from the story instead: short or full")
	mode := fs.String("mode", "HTML", "Telegram parse mode")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s does not accept positional arguments\n", action)
		return 2
	}

	switch *itemType {
	case publish.ItemTypeStory, publish.ItemTypeArticle:
	default:
		fmt.Fprintln(os.Stderr, "--item-type must be story or article")
		return 2
	}
	if *itemID <= 0 {
		fmt.Fprintln(os.Stderr, "--item-id is required")
		return 2
	}

	renderVariant := strings.TrimSpace(strings.ToLower(*fromRender))
	switch renderVariant {
	case "", publish.RenderShort, publish.RenderFull:
	default:
		fmt.Fprintln(os.Stderr, "--from-render must be short or full")
		return 2
	}

	body := strings.TrimSpace(*text)
	if renderVariant != "" && body != "" {
		fmt.Fprintln(os.Stderr, "--text and --from-render are mutually exclusive")
		return 2
	}
	if renderVariant == "" {
		if body == "" {
			raw, err := readAllStdin()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to read text from stdin: %v\n", err)
				return 2
			}
			body = strings.TrimSpace(raw)
		}
		if body == "" {
			fmt.Fprintln(os.Stderr, "message text is required; pass --text, --from-render, or pipe text via stdin")
			return 2
		}
	}

	rt, err := connectRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	if strings.TrimSpace(rt.cfg.BotToken) == "" {
		fmt.Fprintln(os.Stderr, "TG_BOT_TOKEN is required")
		return 2
	}

	sender := newTelegramSender(rt)
	editor := publish.NewEditor(rt.pool, rt.cfg, sender, rt.logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sendMode := *mode
	if renderVariant != "" {
		rendered, renderedMode, err := editor.RenderUpdate(ctx, *itemType, *itemID, renderVariant)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, err)
			return 1
		}
		body = rendered
		sendMode = renderedMode
	}

	if action == "append" {
		err = editor.Append(ctx, *itemType, *itemID, body, sendMode)
	} else {
		err = editor.Edit(ctx, *itemType, *itemID, body, sendMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, err)
		return 1
	}

	fmt.Println("ok")
	return 0
}

func readAllStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
