package sim

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func singleRoadConfig(length, maxSpeed float64, green, red int) Config {
	return Config{
		Roads: []RoadConfig{
			{Name: "main", Length: length, LaneCount: 2},
		},
		MaxSpeed:      maxSpeed,
		GreenDuration: green,
		RedDuration:   red,
	}
}

func mustNewEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	Expect(err).NotTo(HaveOccurred())

	return e
}

func mainRoad(e *Engine) *Road {
	r, err := e.Road("main")
	Expect(err).NotTo(HaveOccurred())

	return r
}

var _ = Describe("Engine", func() {
	var (
		engine *Engine
		road   *Road
	)

	BeforeEach(func() {
		engine = mustNewEngine(singleRoadConfig(40, 5, 200, 100))
		road = mainRoad(engine)
	})

	It("should wrap a vehicle around the end of the road", func() {
		road.SetVehicles([]Vehicle{{ID: "a", Position: 38, Speed: 3}})

		engine.Tick()

		v := road.Vehicles()[0]
		Expect(v.Position).To(BeNumerically("~", 1, 1e-9))
		Expect(engine.CrossingCount()).To(Equal(uint64(0)))
		Expect(engine.LapCount()).To(Equal(uint64(1)))
	})

	It("should not credit a crossing when wrapping exactly to 0", func() {
		road.SetVehicles([]Vehicle{{ID: "a", Position: 39, Speed: 1}})

		engine.Tick()

		Expect(road.Vehicles()[0].Position).To(BeNumerically("==", 0))
		Expect(engine.CrossingCount()).To(Equal(uint64(0)))
		Expect(engine.LapCount()).To(Equal(uint64(1)))
	})

	It("should count every wrap when moving farther than the road", func() {
		engine = mustNewEngine(singleRoadConfig(2, 5, 200, 100))
		road = mainRoad(engine)
		road.SetVehicles([]Vehicle{
			{ID: "a", Position: 0.5, Speed: 5},
			{ID: "b", Position: 1, Speed: 1.5},
		})

		engine.Tick()

		vehicles := road.Vehicles()
		Expect(vehicles[0].Position).To(BeNumerically("~", 1.5, 1e-9))
		Expect(vehicles[1].Position).To(BeNumerically("~", 0.5, 1e-9))
		Expect(engine.LapCount()).To(Equal(uint64(3)))
		Expect(engine.CrossingCount()).To(Equal(uint64(1)))
	})

	It("should not grow with the number of wraps", func() {
		engine = mustNewEngine(singleRoadConfig(1e-6, 5, 200, 100))
		road = mainRoad(engine)
		road.SetVehicles([]Vehicle{{ID: "a", Position: 0, Speed: 5}})

		engine.Tick()

		Expect(engine.LapCount()).To(BeNumerically("~", 5e6, 1))
	})

	It("should credit a crossing when landing in the last unit", func() {
		road.SetVehicles([]Vehicle{{ID: "a", Position: 35, Speed: 4}})

		engine.Tick()

		Expect(road.Vehicles()[0].Position).To(BeNumerically("==", 39))
		Expect(engine.CrossingCount()).To(Equal(uint64(1)))
		Expect(engine.LapCount()).To(Equal(uint64(0)))
	})

	It("should cap speeds at the max speed", func() {
		road.SetVehicles([]Vehicle{
			{ID: "a", Speed: 5},
			{ID: "b", Speed: 10},
		})

		engine.Tick()

		vehicles := road.Vehicles()
		Expect(vehicles[0].Speed).To(BeNumerically("==", 5))
		Expect(vehicles[1].Speed).To(BeNumerically("==", 5))
		Expect(vehicles[1].Position).To(BeNumerically("==", 5))
	})

	It("should cap a vehicle by the vehicle spawned before it", func() {
		road.SetVehicles([]Vehicle{
			{ID: "a", Position: 0, Speed: 3},
			{ID: "b", Position: 30, Speed: 5},
			{ID: "c", Position: 10, Speed: 2},
			{ID: "d", Position: 20, Speed: 4},
		})

		engine.Tick()

		vehicles := road.Vehicles()
		Expect(vehicles[0].Speed).To(BeNumerically("==", 3))
		Expect(vehicles[1].Speed).To(BeNumerically("==", 3))
		Expect(vehicles[2].Speed).To(BeNumerically("==", 2))
		Expect(vehicles[3].Speed).To(BeNumerically("==", 2))
		Expect(vehicles[3].Position).To(BeNumerically("==", 22))
	})

	It("should normalize lanes and negative speeds", func() {
		road.SetVehicles([]Vehicle{
			{ID: "a", Position: 1, Speed: -2, Lane: 5},
			{ID: "b", Position: 1, Speed: 1, Lane: -1},
		})

		engine.Tick()

		vehicles := road.Vehicles()
		Expect(vehicles[0].Speed).To(BeNumerically("==", 0))
		Expect(vehicles[0].Position).To(BeNumerically("==", 1))
		Expect(vehicles[0].Lane).To(Equal(1))
		Expect(vehicles[1].Lane).To(Equal(1))
	})

	It("should freeze a road while its signal is red", func() {
		engine = mustNewEngine(singleRoadConfig(40, 5, 1, 5))
		road = mainRoad(engine)
		road.SetVehicles([]Vehicle{{ID: "a", Position: 0, Speed: 2, Lane: 1}})

		engine.Tick()
		Expect(road.Signal().State()).To(Equal(SignalRed))
		moved := road.Vehicles()
		Expect(moved[0].Position).To(BeNumerically("==", 2))

		for i := 0; i < 5; i++ {
			engine.Tick()
			Expect(road.Vehicles()).To(Equal(moved))
		}

		Expect(road.Signal().State()).To(Equal(SignalGreen))

		engine.Tick()
		Expect(road.Vehicles()[0].Position).To(BeNumerically("==", 4))
	})

	It("should apply signal changes only from the next tick", func() {
		cfg := singleRoadConfig(40, 5, 1, 1)
		cfg.Roads = append(cfg.Roads, RoadConfig{
			Name: "side", Length: 40, LaneCount: 1,
		})
		engine = mustNewEngine(cfg)
		road = mainRoad(engine)
		side, err := engine.Road("side")
		Expect(err).NotTo(HaveOccurred())

		road.SetVehicles([]Vehicle{{ID: "a", Speed: 1}})
		side.SetVehicles([]Vehicle{{ID: "b", Speed: 2}})

		engine.Tick()

		Expect(road.Vehicles()[0].Position).To(BeNumerically("==", 1))
		Expect(side.Vehicles()[0].Position).To(BeNumerically("==", 2))
		Expect(road.Signal().State()).To(Equal(SignalRed))
		Expect(side.Signal().State()).To(Equal(SignalRed))

		engine.Tick()

		Expect(road.Vehicles()[0].Position).To(BeNumerically("==", 1))
		Expect(side.Vehicles()[0].Position).To(BeNumerically("==", 2))
	})

	It("should count ticks", func() {
		for i := 0; i < 7; i++ {
			engine.Tick()
		}

		Expect(engine.TickCount()).To(Equal(uint64(7)))
	})

	It("should report an unknown road", func() {
		_, err := engine.Road("nowhere")

		Expect(err).To(MatchError(ErrUnknownRoad))
	})

	It("should report elapsed whole seconds", func() {
		now := time.Unix(1000, 0)
		engine.WithClock(ClockFunc(func() time.Time { return now }))

		Expect(engine.ElapsedSeconds()).To(Equal(int64(0)))

		now = now.Add(2500 * time.Millisecond)
		Expect(engine.ElapsedSeconds()).To(Equal(int64(2)))
	})

	It("should flag over traffic above the threshold", func() {
		cfg := singleRoadConfig(40, 5, 200, 100)
		cfg.OverTrafficThreshold = 1
		engine = mustNewEngine(cfg)
		road = mainRoad(engine)
		road.SetVehicles([]Vehicle{
			{ID: "a", Position: 35, Speed: 4},
			{ID: "b", Position: 35, Speed: 4},
		})

		Expect(engine.IsOverTraffic()).To(BeFalse())

		engine.Tick()

		Expect(engine.CrossingCount()).To(Equal(uint64(2)))
		Expect(engine.IsOverTraffic()).To(BeTrue())
		Expect(engine.Snapshot().OverTraffic).To(BeTrue())
	})

	It("should reject an invalid configuration", func() {
		_, err := NewEngine(Config{})

		Expect(err).To(MatchError(ErrInvalidConfig))
	})

	Context("with hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			engine.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should invoke hooks in tick order", func() {
			engine = mustNewEngine(singleRoadConfig(40, 5, 1, 1))
			engine.AcceptHook(hook)
			road = mainRoad(engine)
			road.SetVehicles([]Vehicle{{ID: "a", Position: 35, Speed: 4}})

			var positions []*HookPos
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx HookCtx) {
					Expect(ctx.Domain).To(BeIdenticalTo(engine))
					positions = append(positions, ctx.Pos)

					switch ctx.Pos {
					case HookPosCrossing:
						Expect(ctx.Item.(*Vehicle).ID).To(Equal("a"))
						Expect(ctx.Detail).To(BeIdenticalTo(road))
					case HookPosSignalChange:
						Expect(ctx.Item).To(BeIdenticalTo(road))
						Expect(ctx.Detail).To(Equal(SignalChange{
							From: SignalGreen,
							To:   SignalRed,
						}))
					case HookPosAfterTick:
						Expect(ctx.Item).To(Equal(uint64(1)))
					}
				}).
				AnyTimes()

			engine.Tick()

			Expect(positions).To(Equal([]*HookPos{
				HookPosBeforeTick,
				HookPosCrossing,
				HookPosSignalChange,
				HookPosAfterTick,
			}))
		})

		It("should report laps", func() {
			road.SetVehicles([]Vehicle{{ID: "a", Position: 38, Speed: 3}})

			var laps []Lap
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx HookCtx) {
					if ctx.Pos == HookPosLap {
						Expect(ctx.Item.(*Vehicle).ID).To(Equal("a"))
						laps = append(laps, ctx.Detail.(Lap))
					}
				}).
				AnyTimes()

			engine.Tick()

			Expect(laps).To(Equal([]Lap{{Road: road, Count: 1}}))
		})
	})

	Context("when running a spawned simulation", func() {
		BeforeEach(func() {
			engine = mustNewEngine(DefaultConfig())
			engine.Spawn(rand.New(rand.NewSource(1)))
		})

		It("should keep all invariants on every tick", func() {
			var lastCrossings uint64

			for tick := 0; tick < 2000; tick++ {
				wasGreen := make(map[string]bool)
				for _, r := range engine.Roads() {
					wasGreen[r.Name()] = r.Signal().IsGreen()
				}

				engine.Tick()

				Expect(engine.CrossingCount()).To(BeNumerically(">=", lastCrossings))
				lastCrossings = engine.CrossingCount()

				for _, r := range engine.Roads() {
					vehicles := r.Vehicles()
					for i, v := range vehicles {
						Expect(v.Speed).To(BeNumerically(">=", 0))
						Expect(v.Speed).To(BeNumerically("<=", engine.MaxSpeed()))
						Expect(v.Position).To(BeNumerically(">=", 0))
						Expect(v.Position).To(BeNumerically("<", r.Length()))
						Expect(v.Lane).To(BeNumerically(">=", 0))
						Expect(v.Lane).To(BeNumerically("<", r.LaneCount()))

						if wasGreen[r.Name()] && i > 0 {
							Expect(v.Speed).To(BeNumerically("<=", vehicles[i-1].Speed))
						}
					}
				}
			}
		})

		It("should be deterministic for the same seed", func() {
			now := time.Unix(0, 0)
			clock := ClockFunc(func() time.Time { return now })

			a := mustNewEngine(DefaultConfig()).WithClock(clock)
			b := mustNewEngine(DefaultConfig()).WithClock(clock)
			a.Spawn(rand.New(rand.NewSource(42)))
			b.Spawn(rand.New(rand.NewSource(42)))

			Expect(a.Snapshot()).To(Equal(b.Snapshot()))

			for i := 0; i < 1000; i++ {
				a.Tick()
				b.Tick()
				Expect(a.Snapshot()).To(Equal(b.Snapshot()))
			}
		})
	})
})
