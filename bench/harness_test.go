package bench

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Harness", func() {
	var (
		mockCtrl *gomock.Controller
		clock    *MockClock
		h        *Harness
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clock = NewMockClock(mockCtrl)
		h = NewHarness(clock)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should average the time of each call", func() {
		now := uint64(0)
		clock.EXPECT().Frequency().Return(uint64(1000), nil)
		clock.EXPECT().Ticks().DoAndReturn(func() (uint64, error) {
			return now, nil
		}).Times(8)

		calls := 0
		op := func() {
			calls++
			now += uint64(calls) * 10
		}

		r, err := h.Run(op, 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(4))
		Expect(r.Iterations).To(Equal(4))
		Expect(r.Frequency).To(Equal(uint64(1000)))
		Expect(r.AvgSeconds).To(BeNumerically("~", 0.025, 1e-12))
		Expect(r.Total).To(Equal(100 * time.Millisecond))
		Expect(r.Average).To(Equal(25 * time.Millisecond))
	})

	It("should not time anything when the frequency is unavailable", func() {
		clock.EXPECT().Frequency().Return(uint64(0), errors.New("no counter"))

		called := false
		r, err := h.Run(func() { called = true }, 10)

		Expect(err).To(MatchError(ErrClockUnavailable))
		Expect(err.Error()).To(ContainSubstring("no counter"))
		Expect(r).To(BeZero())
		Expect(called).To(BeFalse())
	})

	It("should refuse a zero frequency", func() {
		clock.EXPECT().Frequency().Return(uint64(0), nil)

		_, err := h.Run(func() {}, 1)

		Expect(err).To(MatchError(ErrClockUnavailable))
	})

	It("should discard partial timings when the counter fails", func() {
		clock.EXPECT().Frequency().Return(uint64(1000), nil)
		gomock.InOrder(
			clock.EXPECT().Ticks().Return(uint64(1), nil),
			clock.EXPECT().Ticks().Return(uint64(5), nil),
			clock.EXPECT().Ticks().Return(uint64(0), errors.New("counter lost")),
		)

		r, err := h.Run(func() {}, 3)

		Expect(err).To(MatchError(ErrClockUnavailable))
		Expect(r).To(BeZero())
	})

	It("should refuse non-positive iteration counts", func() {
		_, err := h.Run(func() {}, 0)

		Expect(err).To(MatchError(ErrNoIterations))
	})

	It("should mark each call in progress until it finishes", func() {
		progress := NewMockProgressReporter(mockCtrl)
		h.WithProgress(progress)

		clock.EXPECT().Frequency().Return(uint64(1), nil)
		clock.EXPECT().Ticks().Return(uint64(0), nil).AnyTimes()

		var events []string
		progress.EXPECT().IncrementInProgress(uint64(1)).Do(func(uint64) {
			events = append(events, "start")
		}).Times(2)
		progress.EXPECT().MoveInProgressToFinished(uint64(1)).Do(func(uint64) {
			events = append(events, "finish")
		}).Times(2)

		_, err := h.Run(func() { events = append(events, "op") }, 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]string{
			"start", "op", "finish", "start", "op", "finish",
		}))
	})

	It("should hold the lock while calling the operation", func() {
		var mu sync.Mutex
		h.WithLock(&mu)

		clock.EXPECT().Frequency().Return(uint64(1), nil)
		clock.EXPECT().Ticks().DoAndReturn(func() (uint64, error) {
			Expect(mu.TryLock()).To(BeFalse())
			return 0, nil
		}).Times(6)

		heldDuringOp := 0
		_, err := h.Run(func() {
			if !mu.TryLock() {
				heldDuringOp++
			}
		}, 3)

		Expect(err).NotTo(HaveOccurred())
		Expect(heldDuringOp).To(Equal(3))
		Expect(mu.TryLock()).To(BeTrue())
	})

	It("should release the lock when the counter fails", func() {
		var mu sync.Mutex
		h.WithLock(&mu)

		clock.EXPECT().Frequency().Return(uint64(1), nil)
		clock.EXPECT().Ticks().Return(uint64(0), errors.New("counter lost"))

		_, err := h.Run(func() {}, 1)

		Expect(err).To(MatchError(ErrClockUnavailable))
		Expect(mu.TryLock()).To(BeTrue())
	})

	It("should run cases in order", func() {
		clock.EXPECT().Frequency().Return(uint64(1), nil).Times(2)
		clock.EXPECT().Ticks().Return(uint64(0), nil).AnyTimes()

		var order []string
		results, err := h.RunAll([]Case{
			{Name: "tiled", Op: func() { order = append(order, "tiled") }},
			{Name: "array", Op: func() { order = append(order, "array") }},
		}, 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(order).To(Equal([]string{"tiled", "tiled", "array", "array"}))
		Expect(results).To(HaveLen(2))
		Expect(results[1].Name).To(Equal("array"))
		Expect(results[1].Iterations).To(Equal(2))
	})

	It("should stop at the first failing case", func() {
		clock.EXPECT().Frequency().Return(uint64(0), errors.New("gone"))

		results, err := h.RunAll([]Case{
			{Name: "tiled", Op: func() {}},
			{Name: "array", Op: func() {}},
		}, 2)

		Expect(err).To(MatchError(ContainSubstring("case tiled")))
		Expect(results).To(BeEmpty())
	})
})

var _ = Describe("MonotonicClock", func() {
	It("should count nanoseconds", func() {
		c := NewMonotonicClock()

		freq, err := c.Frequency()
		Expect(err).NotTo(HaveOccurred())
		Expect(freq).To(Equal(uint64(1e9)))

		first, err := c.Ticks()
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(time.Millisecond)
		second, err := c.Ticks()
		Expect(err).NotTo(HaveOccurred())

		Expect(second - first).To(BeNumerically(">=", uint64(time.Millisecond)))
	})
})
