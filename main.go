package main

import (
	"os"

	"github.com/automatiza-mg/sei-cli/internal/adapters/driving/cli"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

func main() {
	if err := cli.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
