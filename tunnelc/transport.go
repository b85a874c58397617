package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/minizivpn/tunneld/api"
	"github.com/minizivpn/tunneld/probe"
	"github.com/minizivpn/tunneld/signal"
	"github.com/spf13/cobra"
)

var reportHeaders = []string{"Time", "Technology", "RSRP", "SINR", "Score", "Mode", "Window", "Connections"}

// reportWidths fit the widest value each column can hold, so watch output
// stays aligned without seeing every row first.
var reportWidths = []int{
	len("15:04:05"),
	len("unavailable"),
	len("RSRP"),
	len("SINR"),
	len("Score"),
	len("throughput"),
	len("655360"),
	len("Connections"),
}

// watchLines formats one report for watch, preceded by the header lines
// when header is set.
func watchLines(r probe.Report, header bool) []string {
	var lines []string
	if header {
		lines = append(lines, formatLine(reportHeaders, reportWidths), formatLine(separator(reportWidths), reportWidths))
	}

	return append(lines, formatLine(reportRow(r), reportWidths))
}

func reportRow(r probe.Report) []string {
	rsrp, sinr := "-", "-"
	if r.Sample.Technology != signal.TechUnavailable {
		rsrp = strconv.Itoa(r.Sample.RSRP)
		sinr = strconv.Itoa(r.Sample.SINR)
	}

	return []string{
		r.At.Local().Format(time.TimeOnly),
		r.Sample.Technology.String(),
		rsrp,
		sinr,
		strconv.Itoa(int(r.Score)),
		r.Transport.Mode.String(),
		strconv.Itoa(r.Transport.ReceiveWindow),
		strconv.Itoa(r.Transport.MaxConnections),
	}
}

func newTransportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transport",
		Short: "Show the current link score and transport settings",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, client *api.Client) error {
			r, err := client.GetTransport(ctx)
			if err != nil {
				return err
			}

			return printTable(cmd.OutOrStdout(), []probe.Report{r}, reportHeaders, reportRow)
		}),
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the link score and transport settings after every poll",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, cmd *cobra.Command, args []string, client *api.Client) error {
			w := cmd.OutOrStdout()
			header := isTerminal(w)

			err := client.WatchTransport(ctx, func(r probe.Report) error {
				for _, line := range watchLines(r, header) {
					fmt.Fprintf(w, "%s\n", line)
				}
				header = false

				return nil
			})
			if ctx.Err() != nil {
				return nil
			}

			return err
		}),
	}
}
