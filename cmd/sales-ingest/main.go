// Package main is the entry point for sales-ingest.
package main

import (
	"fmt"
	"os"

	"github.com/fashionstore/sales-ingest/internal/cli"
	"github.com/fashionstore/sales-ingest/internal/ingest"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		// Distinct exit codes let schedulers pick a retry policy per
		// failure class.
		os.Exit(ingest.ExitCode(err))
	}
}
