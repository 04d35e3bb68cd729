package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tuberctl",
		Short: "tuberctl operates tuberd servers and configuration files",
	}

	root.AddCommand(
		newValidateCommand(),
		newServeCommand(),
		newDescribeCommand(),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
