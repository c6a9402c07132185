package sim

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	It("should accept the default configuration", func() {
		Expect(DefaultConfig().Validate()).To(Succeed())
	})

	It("should name unnamed roads by index", func() {
		cfg := DefaultConfig()
		cfg.Roads[0].Name = ""
		cfg.Roads[1].Name = ""

		e, err := NewEngine(cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(e.Roads()[0].Name()).To(Equal("road0"))
		Expect(e.Roads()[1].Name()).To(Equal("road1"))
	})

	It("should not share intersections with the engine", func() {
		cfg := DefaultConfig()
		e, err := NewEngine(cfg)
		Expect(err).NotTo(HaveOccurred())

		cfg.Roads[0].Intersections[0].X = -1

		Expect(e.Roads()[0].Intersections()[0].X).To(BeNumerically("==", 100))
	})

	DescribeTable("rejecting structurally invalid configurations",
		func(mutate func(c *Config)) {
			cfg := DefaultConfig()
			mutate(&cfg)

			Expect(cfg.Validate()).To(MatchError(ErrInvalidConfig))
		},
		Entry("no roads", func(c *Config) { c.Roads = nil }),
		Entry("max speed of 1", func(c *Config) { c.MaxSpeed = 1 }),
		Entry("NaN max speed", func(c *Config) { c.MaxSpeed = math.NaN() }),
		Entry("infinite max speed", func(c *Config) { c.MaxSpeed = math.Inf(1) }),
		Entry("zero green duration", func(c *Config) { c.GreenDuration = 0 }),
		Entry("negative red duration", func(c *Config) { c.RedDuration = -1 }),
		Entry("zero length road", func(c *Config) { c.Roads[0].Length = 0 }),
		Entry("NaN length road", func(c *Config) { c.Roads[0].Length = math.NaN() }),
		Entry("infinite length road", func(c *Config) { c.Roads[1].Length = math.Inf(1) }),
		Entry("zero lanes", func(c *Config) { c.Roads[1].LaneCount = 0 }),
		Entry("negative vehicle count", func(c *Config) { c.Roads[0].VehicleCount = -3 }),
		Entry("duplicate names", func(c *Config) { c.Roads[1].Name = c.Roads[0].Name }),
	)
})
