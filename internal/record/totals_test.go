package record

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Totals", func() {
	var rec *Record

	BeforeEach(func() {
		rec = newRecord()
	})

	It("sums a week exactly", func() {
		Expect(WeekTotal(newWeek(periodStart, 8, 8, 8, 8, 8, 0, 0)).StringFixed(2)).To(Equal("40.00"))
	})

	It("computes both week subtotals", func() {
		totals := rec.WeekTotals()
		Expect(totals[0].StringFixed(2)).To(Equal("32.00"))
		Expect(totals[1].StringFixed(2)).To(Equal("37.50"))
	})

	It("computes the grand total", func() {
		Expect(rec.GrandTotal().StringFixed(2)).To(Equal("69.50"))
	})

	It("does not drift on repeated quarter hours", func() {
		rec.Week1 = newWeek(periodStart, 7.25, 7.25, 7.25, 7.25, 7.25, 7.25, 7.25)
		rec.Week2 = newWeek(periodStart.AddDays(7), 7.25, 7.25, 7.25, 7.25, 7.25, 7.25, 7.25)
		Expect(rec.GrandTotal().StringFixed(2)).To(Equal("101.50"))
		Expect(rec.GrandTotal().String()).To(Equal("101.5"))
	})

	It("does not drift on tenths", func() {
		rec.Week1 = newWeek(periodStart, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1)
		rec.Week2 = newWeek(periodStart.AddDays(7), 0.2, 0.2, 0.2, 0.2, 0.2, 0.2, 0.2)
		Expect(rec.GrandTotal().String()).To(Equal("2.1"))
	})

	When("a day has non-numeric hours", func() {
		BeforeEach(func() {
			rec.Week1[1].Hours = NewAmount("eight")
		})

		It("counts it as zero", func() {
			Expect(rec.WeekTotals()[0].StringFixed(2)).To(Equal("24.00"))
			Expect(rec.GrandTotal().StringFixed(2)).To(Equal("61.50"))
		})

		It("reports the coercion", func() {
			Expect(rec.Coerced()).To(ConsistOf(Coercion{Field: "week1[1].hours", Raw: "eight"}))
		})
	})

	It("treats missing hours as zero", func() {
		rec.Week2 = newWeek(periodStart.AddDays(7))
		Expect(rec.WeekTotals()[1].IsZero()).To(BeTrue())
		Expect(rec.Coerced()).To(BeEmpty())
	})
})
