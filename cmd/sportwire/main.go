package main

import (
	"os"

	"horse.fit/sportwire/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
