// Package main is the entry point for the badgify CLI binary.
package main

import (
	"os"

	"github.com/roach88/badgify/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
