package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gsmecher/tuberd/client"
	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/spf13/cobra"
)

func newDescribeCommand() *cobra.Command {
	var server string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "describe <object>",
		Short: "Resolve a registry object on a running server and print its doc string and container flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			transport := client.NewTransport(server, codec.NewRegistry())
			obj := client.NewObject(transport, args[0])
			if err := obj.Resolve(ctx); err != nil {
				return err
			}

			out := map[string]any{
				"doc":          obj.Doc(),
				"is_container": obj.IsContainer(),
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "tuberd server base URL")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "request timeout")
	return cmd
}
