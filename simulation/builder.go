package simulation

import (
	"math/rand"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/trafficsim/datarecording"
	"github.com/sarchlab/trafficsim/monitoring"
	"github.com/sarchlab/trafficsim/sim"
	"github.com/sarchlab/trafficsim/tracing"
	"github.com/sirupsen/logrus"
)

// DefaultSampleInterval is the number of ticks between two vehicle samples in
// a recording.
const DefaultSampleInterval = 10

// Builder can be used to build a simulation.
type Builder struct {
	config         sim.Config
	seed           int64
	seedSet        bool
	freq           sim.Freq
	maxTicks       uint64
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
	sampleInterval uint64
	csvTraceOn     bool
	csvFileName    string
	logger         logrus.FieldLogger
	clock          sim.Clock
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		config:         sim.DefaultConfig(),
		freq:           sim.DefaultFreq,
		monitorOn:      true,
		sampleInterval: DefaultSampleInterval,
		logger:         logrus.StandardLogger(),
		clock:          sim.WallClock,
	}
}

// WithConfig sets the roads and the signal timing of the simulation.
func (b Builder) WithConfig(config sim.Config) Builder {
	b.config = config
	return b
}

// WithSeed sets the seed used to spawn the vehicles. Without a seed, the
// current time is used.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seedSet = true

	return b
}

// WithFreq sets how many ticks are performed per second. 0 runs as fast as
// possible.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMaxTicks makes the simulation stop after n ticks. 0 runs until the
// context is cancelled.
func (b Builder) WithMaxTicks(n uint64) Builder {
	b.maxTicks = n
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecording stores the simulation into a SQLite database, sampling the
// vehicles every sampleInterval ticks.
func (b Builder) WithRecording(sampleInterval uint64) Builder {
	b.recordingOn = true
	b.sampleInterval = sampleInterval

	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithCSVTrace writes the trajectory of every vehicle into filename + ".csv".
// An empty filename generates a unique one.
func (b Builder) WithCSVTrace(filename string) Builder {
	b.csvTraceOn = true
	b.csvFileName = filename

	return b
}

// WithLogger sets the logger that receives the simulation log.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithClock sets the clock used to measure the elapsed time.
func (b Builder) WithClock(clock sim.Clock) Builder {
	b.clock = clock
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation. It returns an error if the configuration is
// invalid.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:     xid.New().String(),
		logger: b.logger,
	}

	engine, err := sim.NewEngine(b.config)
	if err != nil {
		return nil, err
	}
	s.engine = engine.WithClock(b.clock)

	s.seed = b.seed
	if !b.seedSet {
		s.seed = time.Now().UnixNano()
	}
	s.engine.Spawn(rand.New(rand.NewSource(s.seed)))

	s.driver = sim.NewRealTimeDriver(s.engine, b.freq).
		WithMaxTicks(b.maxTicks)

	tickLogger := tracing.NewTickLogger(b.logger)
	s.engine.AcceptHook(tickLogger)
	s.driver.RegisterEndHandler(tickLogger)

	s.counters = tracing.NewCounterTracer()
	s.engine.AcceptHook(s.counters)

	if b.recordingOn {
		b.buildRecording(s)
	}

	if b.csvTraceOn {
		s.csvTrace = tracing.NewCSVTraceWriter(b.csvFileName, s.engine)
		s.csvTrace.Init()
		s.engine.AcceptHook(s.csvTrace)
	}

	if b.monitorOn {
		b.buildMonitor(s)
	}

	b.logger.WithFields(logrus.Fields{
		"id":    s.id,
		"seed":  s.seed,
		"roads": len(b.config.Roads),
	}).Info("simulation built")

	return s, nil
}

func (b Builder) buildRecording(s *Simulation) {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "trafficsim_" + s.id
	}

	s.recordingPath = datarecording.FileName(outputPath)
	s.dataRecorder = datarecording.New(outputPath)

	dbTracer := tracing.NewDBTracer(
		s.id, s.engine, s.dataRecorder, b.sampleInterval)
	s.engine.AcceptHook(dbTracer)
	s.driver.RegisterEndHandler(dbTracer)
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor().WithLogger(b.logger)
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterController(s.driver)
	s.monitor.RegisterCounters(s.counters)

	if b.maxTicks > 0 {
		s.progressBar = s.monitor.CreateProgressBar("Run", b.maxTicks)
		s.engine.AcceptHook(s.progressBar)
	}

	s.monitor.StartServer()
}
