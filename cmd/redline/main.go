package main

import (
	"os"

	"github.com/redline-cms/redline/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
