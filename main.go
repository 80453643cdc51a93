package main

import (
	"os"

	"github.com/spigell/job-inbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
