// Package main is the entry point for creditbar. Without a subcommand it
// runs the terminal dashboard; subcommands drive the same backend from the
// shell or serve it over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
