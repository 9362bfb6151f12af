package main

import (
	"os"

	"github.com/wonny/volsync/cmd/volsync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
