package sim

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should get period", func() {
		var f = 1 * KHz
		Expect(f.Period()).To(Equal(time.Millisecond))
	})

	It("should get the period of the default pace", func() {
		Expect(DefaultFreq.Period()).To(Equal(33333333 * time.Nanosecond))
	})

	It("should panic on a zero frequency", func() {
		var f Freq
		Expect(func() { f.Period() }).To(Panic())
	})

	It("should count whole cycles in a duration", func() {
		var f = 30 * Hz
		Expect(f.Cycle(time.Second)).To(Equal(uint64(30)))
		Expect(f.Cycle(1500 * time.Millisecond)).To(Equal(uint64(45)))
		Expect(f.Cycle(-time.Second)).To(Equal(uint64(0)))
	})

	It("should get the duration of n cycles", func() {
		var f = 10 * Hz
		Expect(f.NCycles(3)).To(Equal(300 * time.Millisecond))
	})
})
