// Package simulation assembles an engine, its driver, and the optional
// recorders and monitor into a runnable simulation.
package simulation

import (
	"context"
	"errors"
	"time"

	"github.com/sarchlab/trafficsim/datarecording"
	"github.com/sarchlab/trafficsim/monitoring"
	"github.com/sarchlab/trafficsim/sim"
	"github.com/sarchlab/trafficsim/tracing"
	"github.com/sirupsen/logrus"
)

// A Simulation owns everything that a traffic simulation run needs.
type Simulation struct {
	id     string
	seed   int64
	logger logrus.FieldLogger

	engine *sim.Engine
	driver *sim.RealTimeDriver

	counters      *tracing.CounterTracer
	dataRecorder  datarecording.DataRecorder
	recordingPath string
	csvTrace      *tracing.CSVTraceWriter

	monitor     *monitoring.Monitor
	progressBar *monitoring.ProgressBar
}

// ID returns the unique identifier of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Seed returns the seed that the vehicles were spawned with.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// Engine returns the engine used in the simulation. The engine must not be
// touched while Run is in progress; use Driver().Snapshot() instead.
func (s *Simulation) Engine() *sim.Engine {
	return s.engine
}

// Driver returns the driver that ticks the engine.
func (s *Simulation) Driver() *sim.RealTimeDriver {
	return s.driver
}

// Monitor returns the monitor, or nil if monitoring is disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Counters returns the per-road counters.
func (s *Simulation) Counters() *tracing.CounterTracer {
	return s.counters
}

// DataRecorder returns the data recorder, or nil if recording is disabled.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// RecordingPath returns the database file that the run is recorded into, or
// an empty string if recording is disabled.
func (s *Simulation) RecordingPath() string {
	return s.recordingPath
}

// CSVTracePath returns the file that vehicle trajectories are written into, or
// an empty string if the CSV trace is disabled.
func (s *Simulation) CSVTracePath() string {
	if s.csvTrace == nil {
		return ""
	}

	return s.csvTrace.Path() + ".csv"
}

// Run drives the simulation until the tick limit is reached or ctx is done,
// and then notifies the end handlers with the final snapshot. A cancelled
// context is reported as the returned error.
func (s *Simulation) Run(ctx context.Context) error {
	err := s.driver.Run(ctx)

	s.driver.Finished()

	if s.progressBar != nil {
		s.monitor.CompleteProgressBar(s.progressBar)
	}

	return err
}

// Terminate flushes and closes the outputs and stops the monitoring server.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.csvTrace != nil {
		errs = append(errs, s.csvTrace.Close())
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		errs = append(errs, s.monitor.StopServer(ctx))
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.WithError(err).Error("failed to terminate simulation")
	}

	return err
}
