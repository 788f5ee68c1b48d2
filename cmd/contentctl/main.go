package main

import (
	"os"

	"github.com/tendant/site-content/cmd/contentctl/commands"
)

var version = "dev"

func main() {
	commands.SetVersion(version)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
