package main

import (
	"os"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
