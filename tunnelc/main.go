package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/minizivpn/tunneld/api"
	"github.com/spf13/cobra"
)

var socketPath string

const defaultSocketPath = "/var/run/tunneld.sock"

// The daemon reads the same variable.
func defaultSocket() string {
	if v, ok := os.LookupEnv("TUNNELD_SOCKET"); ok && v != "" {
		return v
	}
	return defaultSocketPath
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tunnelc",
		Short:         "Query and control a running tunneld",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&socketPath, "socket", defaultSocket(), "path to tunneld socket, overrides $TUNNELD_SOCKET")

	root.AddCommand(
		newVersionCommand(),
		newShutdownCommand(),
		newRoutesCommand(),
		newTransportCommand(),
		newWatchCommand(),
	)

	return root
}

// withClient dials the daemon for the duration of one command.
func withClient(f func(ctx context.Context, cmd *cobra.Command, args []string, client *api.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := api.NewClient(socketPath)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		defer client.Close()

		return f(cmd.Context(), cmd, args, client)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tunneld version",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, client *api.Client) error {
			version, err := client.GetVersion(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "v%s\n", version)

			return nil
		}),
	}
}

func newShutdownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Shut down tunneld",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, client *api.Client) error {
			return client.Shutdown(ctx)
		}),
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
