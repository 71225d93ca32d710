// Package main provides the entry point for the sthmatters CLI.
package main

import (
	"os"

	"github.com/DayDreammy/Sth-Matters-epub/cmd/sthmatters/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
