package main

import (
	"os"

	"github.com/vayu-prana/vayu/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
