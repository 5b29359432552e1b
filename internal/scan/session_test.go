package scan

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cleanscan/internal/waste"
)

var _ = Describe("Session", func() {
	var session *Session

	BeforeEach(func() {
		session = NewSession()
	})

	It("should issue increasing scan ids", func() {
		a, _ := session.Begin(context.Background())
		b, _ := session.Begin(context.Background())
		Expect(b).To(BeNumerically(">", a))
	})

	It("should apply the outcome of the current scan", func() {
		id, _ := session.Begin(context.Background())
		report := &waste.ScanReport{}
		Expect(session.Apply(Outcome{ScanID: id, Report: report})).To(BeTrue())
		Expect(session.Current().Report).To(BeIdenticalTo(report))
		Expect(session.InFlight()).To(BeFalse())
	})

	When("scan B starts before scan A resolves", func() {
		var (
			a, b uint64
			ctxA context.Context
		)

		BeforeEach(func() {
			a, ctxA = session.Begin(context.Background())
			b, _ = session.Begin(context.Background())
		})

		It("should cancel scan A", func() {
			Expect(ctxA.Err()).To(MatchError(context.Canceled))
		})

		It("should not let A overwrite B when A arrives last", func() {
			reportB := &waste.ScanReport{LocationNotice: "B"}
			Expect(session.Apply(Outcome{ScanID: b, Report: reportB})).To(BeTrue())
			Expect(session.Apply(Outcome{ScanID: a, Report: &waste.ScanReport{LocationNotice: "A"}})).To(BeFalse())
			Expect(session.Current().Report).To(BeIdenticalTo(reportB))
		})

		It("should drop A even when it arrives before B", func() {
			Expect(session.Apply(Outcome{ScanID: a, Report: &waste.ScanReport{}})).To(BeFalse())
			Expect(session.Current()).To(BeNil())
			Expect(session.InFlight()).To(BeTrue())
		})
	})

	It("should apply an outcome only once", func() {
		id, _ := session.Begin(context.Background())
		Expect(session.Apply(Outcome{ScanID: id})).To(BeTrue())
		Expect(session.Apply(Outcome{ScanID: id, Report: &waste.ScanReport{}})).To(BeFalse())
		Expect(session.Current().Report).To(BeNil())
	})

	It("should supersede everything on Reset", func() {
		id, ctx := session.Begin(context.Background())
		session.Reset()
		Expect(ctx.Err()).To(HaveOccurred())
		Expect(session.Apply(Outcome{ScanID: id, Report: &waste.ScanReport{}})).To(BeFalse())
		Expect(session.Current()).To(BeNil())
	})

	It("should clear the previous result when a new scan begins", func() {
		id, _ := session.Begin(context.Background())
		session.Apply(Outcome{ScanID: id, Report: &waste.ScanReport{}})
		session.Begin(context.Background())
		Expect(session.Current()).To(BeNil())
	})
})
