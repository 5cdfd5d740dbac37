package main

import (
	"os"

	"github.com/modata-dev/modata/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
