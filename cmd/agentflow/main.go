package main

import (
	"os"

	"github.com/farazpawle/agent-flow-sub001/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
