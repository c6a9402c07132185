package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/trafficsim/datarecording"
	"github.com/sarchlab/trafficsim/sim"
	"github.com/sarchlab/trafficsim/tracing"
	"github.com/sirupsen/logrus/hooks/test"
)

var _ = Describe("Simulation", func() {
	var (
		builder Builder
		dir     string
	)

	BeforeEach(func() {
		logger, _ := test.NewNullLogger()
		dir = GinkgoT().TempDir()

		builder = MakeBuilder().
			WithoutMonitoring().
			WithLogger(logger).
			WithFreq(0).
			WithSeed(42)
	})

	It("should spawn the configured vehicles", func() {
		s, err := builder.Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		snapshot := s.Driver().Snapshot()
		Expect(snapshot.Tick).To(Equal(uint64(0)))
		Expect(snapshot.Roads).To(HaveLen(2))
		for _, r := range snapshot.Roads {
			Expect(r.Vehicles).To(HaveLen(5))
			Expect(r.Signal.State).To(Equal(sim.SignalGreen))
		}
		Expect(s.Seed()).To(Equal(int64(42)))
		Expect(s.ID()).NotTo(BeEmpty())
	})

	It("should run until the tick limit", func() {
		s, err := builder.WithMaxTicks(250).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.Run(context.Background())).To(Succeed())

		snapshot := s.Driver().Snapshot()
		Expect(snapshot.Tick).To(Equal(uint64(250)))
		Expect(s.Engine().TickCount()).To(Equal(uint64(250)))
		for _, r := range snapshot.Roads {
			Expect(r.Signal.State).To(Equal(sim.SignalRed))
			Expect(s.Counters().Road(r.Name).Transitions).To(Equal(uint64(1)))
		}
	})

	It("should be deterministic for a seed", func() {
		s1, err := builder.WithMaxTicks(100).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s1.Terminate()

		s2, err := builder.WithMaxTicks(100).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s2.Terminate()

		Expect(s1.Run(context.Background())).To(Succeed())
		Expect(s2.Run(context.Background())).To(Succeed())

		a := s1.Driver().Snapshot()
		b := s2.Driver().Snapshot()
		Expect(a.Roads).To(Equal(b.Roads))
		Expect(a.CrossingCount).To(Equal(b.CrossingCount))
	})

	It("should reject an invalid config", func() {
		config := sim.DefaultConfig()
		config.MaxSpeed = 0

		_, err := builder.WithConfig(config).Build()

		Expect(err).To(MatchError(sim.ErrInvalidConfig))
	})

	It("should stop when the context is cancelled", func() {
		s, err := builder.WithFreq(1 * sim.Hz).Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(s.Run(ctx)).To(MatchError(context.Canceled))
	})

	It("should panic if a monitor port is set without monitoring", func() {
		Expect(func() {
			_, _ = builder.WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	It("should record the run", func() {
		output := filepath.Join(dir, "run")
		s, err := builder.
			WithMaxTicks(250).
			WithRecording(50).
			WithOutputFileName(output).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(Succeed())
		final := s.Driver().Snapshot()
		Expect(s.Terminate()).To(Succeed())
		Expect(s.RecordingPath()).To(Equal(output + ".sqlite3"))

		reader, err := datarecording.NewReader(s.RecordingPath())
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(tracing.RunSummaryTable, tracing.RunSummary{})
		results, total, err := reader.Query(context.Background(),
			tracing.RunSummaryTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))

		summary := results[0].(*tracing.RunSummary)
		Expect(summary.RunID).To(Equal(s.ID()))
		Expect(summary.Ticks).To(Equal(uint64(250)))
		Expect(summary.Crossings).To(Equal(final.CrossingCount))

		samples, err := reader.Count(context.Background(),
			tracing.VehicleSampleTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(samples).To(Equal(5 * 10))

		transitions, err := reader.Count(context.Background(),
			tracing.SignalTransitionTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(transitions).To(Equal(2))
	})

	It("should write a CSV trace", func() {
		output := filepath.Join(dir, "trace")
		s, err := builder.WithMaxTicks(3).WithCSVTrace(output).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		content, err := os.ReadFile(s.CSVTracePath())
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		Expect(lines).To(HaveLen(1 + 3*10))
		Expect(lines[0]).To(Equal("Tick,Road,Vehicle,Position,Speed,Lane"))
	})

	It("should measure time with the given clock", func() {
		now := time.Unix(1000, 0)
		s, err := builder.
			WithClock(sim.ClockFunc(func() time.Time { return now })).
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		now = now.Add(7 * time.Second)

		Expect(s.Driver().Snapshot().ElapsedSeconds).To(Equal(int64(7)))
	})

	It("should serve the monitor", func() {
		logger, _ := test.NewNullLogger()
		s, err := MakeBuilder().
			WithLogger(logger).
			WithFreq(0).
			WithSeed(1).
			WithMaxTicks(10).
			Build()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.Run(context.Background())).To(Succeed())

		rsp, err := http.Get(s.Monitor().URL() + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var now struct {
			Tick uint64 `json:"tick"`
		}
		Expect(json.NewDecoder(rsp.Body).Decode(&now)).To(Succeed())
		Expect(now.Tick).To(Equal(uint64(10)))
	})
})
