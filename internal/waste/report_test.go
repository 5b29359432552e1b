package waste

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func categoriesOf(groups []Group) []Category {
	out := make([]Category, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Category)
	}
	return out
}

var _ = Describe("GroupItems", func() {
	var items []Item

	BeforeEach(func() {
		items = []Item{
			{Category: Hazardous, Confidence: 70, Description: "battery"},
			{Category: Organic, Confidence: 90, Description: "apple core"},
			{Category: Plastic, Confidence: 88, Description: "bottle", PlasticType: PET},
			{Category: Organic, Confidence: 60, Description: "egg shell"},
		}
	})

	It("should order buckets by the declared display order", func() {
		Expect(categoriesOf(GroupItems(items))).To(Equal([]Category{Plastic, Organic, Hazardous}))
	})

	It("should omit categories without items", func() {
		for _, g := range GroupItems(items) {
			Expect(g.Items).NotTo(BeEmpty())
		}
	})

	It("should keep detection order inside a bucket", func() {
		groups := GroupItems(items)
		Expect(groups[1].Items[0].Description).To(Equal("apple core"))
		Expect(groups[1].Items[1].Description).To(Equal("egg shell"))
	})

	It("should be idempotent", func() {
		Expect(GroupItems(items)).To(Equal(GroupItems(items)))
	})

	It("should produce the same bucket order for any input order", func() {
		reversed := make([]Item, len(items))
		for i, item := range items {
			reversed[len(items)-1-i] = item
		}
		Expect(categoriesOf(GroupItems(reversed))).To(Equal(categoriesOf(GroupItems(items))))
	})

	It("should attach display attributes from the lookup table", func() {
		groups := GroupItems(items)
		Expect(groups[0].Label).To(Equal("Plastic"))
		Expect(groups[1].Emoji).To(Equal("🌱"))
	})

	It("should return no buckets for no items", func() {
		Expect(GroupItems(nil)).To(BeEmpty())
	})
})

var _ = Describe("ShowPlasticPanel", func() {
	plasticItem := Item{Category: Plastic, Confidence: 90, Description: "cup"}
	otherItem := Item{Category: Landfill, Confidence: 90, Description: "tissue"}

	DescribeTable("truth table",
		func(items []Item, plasticType PlasticType, expected bool) {
			r := &ClassificationResult{Items: items, Tips: []string{}, PlasticType: plasticType}
			Expect(ShowPlasticPanel(r)).To(Equal(expected))
		},
		Entry("plastic item and overall type", []Item{plasticItem}, PET, true),
		Entry("plastic item without overall type", []Item{otherItem, plasticItem}, PlasticType(""), true),
		Entry("overall type without plastic item", []Item{otherItem}, HDPE, true),
		Entry("neither", []Item{otherItem}, PlasticType(""), false),
	)

	It("should be false for a nil result", func() {
		Expect(ShowPlasticPanel(nil)).To(BeFalse())
	})
})

var _ = Describe("Summarize", func() {
	It("should derive counts and rounded rates", func() {
		r := &ClassificationResult{Items: []Item{
			{Category: Recyclable}, {Category: Recyclable}, {Category: Landfill},
		}}
		s := Summarize(r)
		Expect(s.Total).To(Equal(3))
		Expect(s.Counts[Recyclable]).To(Equal(2))
		Expect(s.RecyclableRate).To(Equal(67))
		Expect(s.LandfillRate).To(Equal(33))
	})

	It("should report zero rates for an empty result", func() {
		s := Summarize(&ClassificationResult{})
		Expect(s.Total).To(BeZero())
		Expect(s.RecyclableRate).To(BeZero())
	})

	It("should round half up", func() {
		Expect(Percent(1, 8)).To(Equal(13))
		Expect(Percent(0, 0)).To(Equal(0))
	})
})

var _ = Describe("NewReport", func() {
	When("a plastic PET item is reported with nearby centers for Pune", func() {
		var report *ScanReport

		BeforeEach(func() {
			r := &ClassificationResult{
				Items:         []Item{{Category: Plastic, Confidence: 95, Description: "water bottle", PlasticType: PET}},
				Tips:          []string{"Crush bottles"},
				NearbyCenters: []RecyclingCenter{{Name: "Swachh", Type: "Cooperative", Address: "Pune"}},
			}
			report = NewReport(r, &Location{City: "Pune", State: "Maharashtra"}, "")
		})

		It("should show the plastic panel", func() {
			Expect(report.Plastic).NotTo(BeNil())
			Expect(report.Plastic.PlasticType).To(Equal(PET))
			Expect(report.Plastic.NearbyCenters).To(HaveLen(1))
		})

		It("should place the item in exactly one bucket", func() {
			Expect(report.Groups).To(HaveLen(1))
			Expect(report.Groups[0].Category).To(Equal(Plastic))
		})

		It("should carry the location", func() {
			Expect(report.Location).To(Equal(&Location{City: "Pune", State: "Maharashtra"}))
		})
	})

	When("no plastic is involved", func() {
		It("should omit the plastic panel and location", func() {
			r := &ClassificationResult{Items: []Item{{Category: Organic, Confidence: 50, Description: "leaves"}}, Tips: []string{}}
			report := NewReport(r, &Location{City: "Pune"}, "Location access denied")
			Expect(report.Plastic).To(BeNil())
			Expect(report.Location).To(BeNil())
			Expect(report.LocationNotice).To(Equal("Location access denied"))
		})
	})
})
