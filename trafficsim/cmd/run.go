package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarchlab/trafficsim/sim"
	"github.com/sarchlab/trafficsim/simulation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a traffic simulation",
	Long: `Run a traffic simulation until the tick limit is reached or the process is ` +
		`interrupted. The final line reports the elapsed seconds and the number of crossings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		s, err := buildSimulation(cmd, os.LookupEnv)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runSimulation(ctx, cmd, s)
	},
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "YAML file that describes the roads")
	cmd.Flags().Int64("seed", 0, "seed used to spawn the vehicles, random if 0")
	cmd.Flags().Uint64("ticks", 0, "number of ticks to run, unlimited if 0")
	cmd.Flags().Float64("rate", float64(sim.DefaultFreq),
		"ticks per second, as fast as possible if 0")
	cmd.Flags().Bool("monitor", true, "serve the monitoring web page")
	cmd.Flags().Int("monitor-port", 0, "port of the monitoring server, random if 0")
	cmd.Flags().Bool("open-browser", false, "open the monitoring page in a browser")
	cmd.Flags().Bool("record", false, "record the run into a SQLite database")
	cmd.Flags().Uint64("sample-interval", simulation.DefaultSampleInterval,
		"ticks between two recorded vehicle samples")
	cmd.Flags().String("output", "", "output file name without extension")
	cmd.Flags().Bool("csv", false, "write vehicle trajectories into a CSV file")
}

func buildSimulation(
	cmd *cobra.Command,
	lookup lookupFunc,
) (*simulation.Simulation, error) {
	config, err := loadConfig(stringOption(cmd, "config", lookup), lookup)
	if err != nil {
		return nil, err
	}

	b := simulation.MakeBuilder().
		WithConfig(config).
		WithLogger(logrus.StandardLogger())

	seed, err := intOption(cmd, "seed", lookup)
	if err != nil {
		return nil, err
	}
	if seed != 0 {
		b = b.WithSeed(seed)
	}

	ticks, err := intOption(cmd, "ticks", lookup)
	if err != nil {
		return nil, err
	}
	if ticks < 0 {
		return nil, fmt.Errorf("ticks cannot be negative, got %d", ticks)
	}
	b = b.WithMaxTicks(uint64(ticks))

	rate, err := floatOption(cmd, "rate", lookup)
	if err != nil {
		return nil, err
	}
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("rate must be a finite non-negative number, got %g", rate)
	}
	b = b.WithFreq(sim.Freq(rate) * sim.Hz)

	b, err = withOutputs(cmd, b, lookup)
	if err != nil {
		return nil, err
	}

	return b.Build()
}

func withOutputs(
	cmd *cobra.Command,
	b simulation.Builder,
	lookup lookupFunc,
) (simulation.Builder, error) {
	monitorOn, err := boolOption(cmd, "monitor", lookup)
	if err != nil {
		return b, err
	}

	if !monitorOn {
		b = b.WithoutMonitoring()
	} else {
		port, err := intOption(cmd, "monitor-port", lookup)
		if err != nil {
			return b, err
		}
		b = b.WithMonitorPort(int(port))
	}

	output := stringOption(cmd, "output", lookup)

	record, err := boolOption(cmd, "record", lookup)
	if err != nil {
		return b, err
	}

	if record {
		interval, err := intOption(cmd, "sample-interval", lookup)
		if err != nil {
			return b, err
		}
		if interval < 0 {
			return b, fmt.Errorf("sample interval cannot be negative, got %d", interval)
		}
		b = b.WithRecording(uint64(interval)).WithOutputFileName(output)
	}

	csv, err := boolOption(cmd, "csv", lookup)
	if err != nil {
		return b, err
	}

	if csv {
		csvName := ""
		if output != "" {
			csvName = output + "_trace"
		}
		b = b.WithCSVTrace(csvName)
	}

	return b, nil
}

func runSimulation(
	ctx context.Context,
	cmd *cobra.Command,
	s *simulation.Simulation,
) error {
	openBrowser, err := boolOption(cmd, "open-browser", os.LookupEnv)
	if err != nil {
		return err
	}

	if openBrowser && s.Monitor() != nil {
		if err := s.Monitor().OpenInBrowser(); err != nil {
			logrus.WithError(err).Warn("failed to open browser")
		}
	}

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logrus.Info("simulation interrupted")
		err = nil
	}

	printStatus(cmd.OutOrStdout(), s.Driver().Snapshot())

	if p := s.RecordingPath(); p != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Recording: %s\n", p)
	}

	if p := s.CSVTracePath(); p != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Trace: %s\n", p)
	}

	return errors.Join(err, s.Terminate())
}

// printStatus writes the elapsed time and the number of crossings, and flags
// the run when the crossings exceed the over-traffic threshold.
func printStatus(w io.Writer, s sim.Snapshot) {
	fmt.Fprintf(w, "Time: %d seconds  Crossings: %d", s.ElapsedSeconds, s.CrossingCount)

	if s.OverTraffic {
		fmt.Fprint(w, "  Over Traffic!")
	}

	fmt.Fprintln(w)
}
