package main

import (
	"os"

	"github.com/tessro/devsup/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
