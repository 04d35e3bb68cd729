package main

import (
	"fmt"

	tuberd "github.com/gsmecher/tuberd"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Load and validate a tuberd config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tuberd.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if err := tuberd.ValidateConfig(*cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (listen=%s format=%s)\n", args[0], cfg.Listen, cfg.DefaultFormat)
			return nil
		},
	}
}
