package main

import (
	"fmt"
	"os"

	"activity-tracker/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(cli.Options{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
