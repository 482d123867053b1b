package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/shuttlebridge/cmd/shuttlebridge/app/options"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/roster"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/sfmta"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

func newRunCommand(opts *options.ServerOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve the trigger endpoint and run the reporting loop (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(opts)()
		},
	}
}

func newStopsCommand(opts *options.ServerOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stops",
		Short: "Fetch the allowed stops once and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.ValidateStops(); err != nil {
				return err
			}
			ctx := genericapiserver.SetupSignalContext()
			log.Init(opts.Log)

			client := sfmta.NewClient(opts.SfmtaOptions.URL(), "", "", opts.SfmtaOptions.Timeout)
			list, err := client.FetchStops(ctx)
			if err != nil {
				return err
			}
			printStops(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newRosterCommand(opts *options.ServerOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "Fetch the vehicle roster once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.ValidateRoster(); err != nil {
				return err
			}
			ctx := genericapiserver.SetupSignalContext()
			log.Init(opts.Log)

			client := roster.NewSheetClient(opts.RosterOptions.URLTemplate, opts.RosterOptions.SheetKey, opts.RosterOptions.Timeout)
			vehicles, err := client.FetchRoster(ctx)
			if err != nil {
				return err
			}
			printRoster(cmd.OutOrStdout(), vehicles)
			return nil
		},
	}
}

func printStops(w io.Writer, list []stops.Stop) {
	table := uitable.New()
	table.AddRow("STOP ID", "LATITUDE", "LONGITUDE")
	for _, s := range list {
		table.AddRow(s.StopID,
			strconv.FormatFloat(s.Latitude, 'f', 6, 64),
			strconv.FormatFloat(s.Longitude, 'f', 6, 64))
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "\n%d allowed stops\n", len(list))
}

func printRoster(w io.Writer, vehicles []roster.Vehicle) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("DEVICE ID", "PLACARD", "LICENSE PLATE", "NAME")
	for _, v := range vehicles {
		table.AddRow(v.DeviceID, v.PlacardNumber, v.LicensePlate, v.DisplayName)
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "\n%d vehicles\n", len(vehicles))
}
