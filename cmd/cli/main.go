package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/runtime/terminal"
)

func main() {
	// Aggregates serialize sums as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cli := terminal.NewCLI(terminal.Options{
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
