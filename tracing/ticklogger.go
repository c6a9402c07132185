package tracing

import (
	"github.com/sarchlab/trafficsim/sim"
	"github.com/sirupsen/logrus"
)

// TickLogger is a hook that writes what happens in each tick to a logger.
// Signal changes are logged at info level, crossings and laps at debug level,
// and every completed tick at trace level.
type TickLogger struct {
	tickTracker

	logger logrus.FieldLogger
}

// NewTickLogger returns a new TickLogger which will write into the logger.
func NewTickLogger(logger logrus.FieldLogger) *TickLogger {
	return &TickLogger{logger: logger}
}

// Func writes the hook information into the logger.
func (h *TickLogger) Func(ctx sim.HookCtx) {
	h.observe(ctx)

	switch ctx.Pos {
	case sim.HookPosSignalChange:
		road := ctx.Item.(*sim.Road)
		change := ctx.Detail.(sim.SignalChange)
		h.logger.WithFields(logrus.Fields{
			"tick": h.current,
			"road": road.Name(),
			"from": change.From.String(),
			"to":   change.To.String(),
		}).Info("signal changed")
	case sim.HookPosCrossing:
		h.vehicleEntry(ctx, ctx.Detail.(*sim.Road)).Debug("crossing credited")
	case sim.HookPosLap:
		lap := ctx.Detail.(sim.Lap)
		h.vehicleEntry(ctx, lap.Road).
			WithField("laps", lap.Count).
			Debug("lap completed")
	case sim.HookPosAfterTick:
		h.logger.WithField("tick", h.current).Trace("tick completed")
	}
}

func (h *TickLogger) vehicleEntry(ctx sim.HookCtx, road *sim.Road) *logrus.Entry {
	vehicle := ctx.Item.(*sim.Vehicle)

	return h.logger.WithFields(logrus.Fields{
		"tick":     h.current,
		"road":     road.Name(),
		"vehicle":  vehicle.ID,
		"position": vehicle.Position,
		"lane":     vehicle.Lane,
	})
}

// Handle logs the final state of the simulation.
func (h *TickLogger) Handle(final sim.Snapshot) {
	h.logger.WithFields(logrus.Fields{
		"ticks":     final.Tick,
		"crossings": final.CrossingCount,
		"laps":      final.LapCount,
		"elapsed":   final.ElapsedSeconds,
	}).Info("simulation finished")
}
