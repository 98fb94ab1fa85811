package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/sportwire/internal/auth"
)

// runHashPassword prints a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func runHashPassword(args []string) int {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var password string
	switch fs.NArg() {
	case 1:
		password = fs.Arg(0)
	case 0:
		raw, err := readAllStdin()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read password from stdin: %v\n", err)
			return 2
		}
		password = strings.TrimSpace(raw)
	default:
		fmt.Fprintln(os.Stderr, "usage: hash-password [password]")
		return 2
	}

	if strings.TrimSpace(password) == "" {
		fmt.Fprintln(os.Stderr, "password is required; pass it as an argument or pipe it via stdin")
		return 2
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		return 1
	}

	fmt.Println(hash)
	return 0
}
