package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/sarchlab/trafficsim/datarecording"
	"github.com/sarchlab/trafficsim/tracing"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [recording]",
	Short: "Summarize a recorded run",
	Long:  `Summarize a run recorded with "trafficsim run --record", per road.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		return summarize(cmd.Context(), reader, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

type roadSummary struct {
	crossings   int
	laps        uint64
	transitions int
}

func summarize(
	ctx context.Context,
	reader datarecording.DataReader,
	w io.Writer,
) error {
	reader.MapTable(tracing.RunSummaryTable, tracing.RunSummary{})
	reader.MapTable(tracing.CrossingTable, tracing.VehicleEvent{})
	reader.MapTable(tracing.LapTable, tracing.LapEvent{})
	reader.MapTable(tracing.SignalTransitionTable, tracing.SignalTransition{})

	runs, _, err := reader.Query(ctx, tracing.RunSummaryTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, r := range runs {
		run := r.(*tracing.RunSummary)
		fmt.Fprintf(w, "Run %s: %d ticks, %d crossings, %d laps, %d seconds\n",
			run.RunID, run.Ticks, run.Crossings, run.Laps, run.ElapsedSeconds)
	}

	roads := make(map[string]*roadSummary)
	road := func(name string) *roadSummary {
		if roads[name] == nil {
			roads[name] = &roadSummary{}
		}

		return roads[name]
	}

	crossings, _, err := reader.Query(ctx, tracing.CrossingTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, c := range crossings {
		road(c.(*tracing.VehicleEvent).Road).crossings++
	}

	laps, _, err := reader.Query(ctx, tracing.LapTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, l := range laps {
		lap := l.(*tracing.LapEvent)
		road(lap.Road).laps += lap.Laps
	}

	transitions, _, err := reader.Query(ctx, tracing.SignalTransitionTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, t := range transitions {
		road(t.(*tracing.SignalTransition).Road).transitions++
	}

	names := make([]string, 0, len(roads))
	for name := range roads {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROAD\tCROSSINGS\tLAPS\tTRANSITIONS")

	for _, name := range names {
		r := roads[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n",
			name, r.crossings, r.laps, r.transitions)
	}

	return tw.Flush()
}
