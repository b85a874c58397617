package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/minizivpn/tunneld/api"
	"github.com/minizivpn/tunneld/route"
	"github.com/spf13/cobra"
)

var routeHeaders = []string{"Prefix", "First", "Last", "Addresses"}

func routeRow(b route.Block) []string {
	return []string{
		b.String(),
		b.Base.String(),
		b.Last().String(),
		strconv.FormatUint(b.Size(), 10),
	}
}

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [address]",
		Short: "Show the routes that send everything except address into the tunnel",
		Long: "Show the routes that send everything except address into the tunnel.\n" +
			"Without an address, tunneld uses its configured upstream endpoint.",
		Args: cobra.MaximumNArgs(1),
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, client *api.Client) error {
			var addr string
			if len(args) > 0 {
				addr = args[0]
			}

			set, err := client.GetRoutes(ctx, addr)
			if err != nil {
				return err
			}

			if addr != "" {
				if _, ok := route.ParseAddr(addr); !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not an IPv4 address, routing everything\n", addr)
				}
			}

			return printTable(cmd.OutOrStdout(), set, routeHeaders, routeRow)
		}),
	}
}
