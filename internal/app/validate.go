package app

import (
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/article.v1.json
var articleSchemaV1 []byte

const articleSchemaURL = "https://horse.fit/sportwire/schema/article.v1.json"

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	quiet := fs.Bool("quiet", false, "Only report failures")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "validate requires at least one JSON file argument")
		return 2
	}

	schema, err := compileArticleSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compile schema: %v\n", err)
		return 1
	}

	failures := 0
	for _, path := range fs.Args() {
		if err := validateArticleFile(schema, path); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			continue
		}
		if !*quiet {
			fmt.Printf("OK   %s\n", path)
		}
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failures, fs.NArg())
		return 1
	}
	return 0
}

func compileArticleSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(articleSchemaURL, strings.NewReader(string(articleSchemaV1))); err != nil {
		return nil, err
	}
	return compiler.Compile(articleSchemaURL)
}

func validateArticleFile(schema *jsonschema.Schema, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return schema.Validate(doc)
}
