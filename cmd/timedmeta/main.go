// Package main is the entry point for the timedmeta application.
package main

import (
	"os"

	"github.com/jmylchreest/timedmeta/cmd/timedmeta/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
