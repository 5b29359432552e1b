package waste

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveLanguage", func() {
	It("should resolve every supported tag to a non-empty name", func() {
		for _, l := range Languages() {
			resolved := ResolveLanguage(l.Tag)
			Expect(resolved).To(Equal(l))
			Expect(resolved.Name).NotTo(BeEmpty())
		}
	})

	It("should be deterministic", func() {
		Expect(ResolveLanguage("tamil")).To(Equal(ResolveLanguage("tamil")))
	})

	It("should ignore case and surrounding spaces", func() {
		Expect(ResolveLanguage("  Hindi ").Name).To(Equal("Hindi"))
	})

	DescribeTable("falling back to English",
		func(tag string) {
			Expect(ResolveLanguage(tag)).To(Equal(English))
		},
		Entry("empty tag", ""),
		Entry("unsupported language", "french"),
		Entry("locale code", "hi-IN"),
	)
})

var _ = Describe("Categories", func() {
	It("should list the superset taxonomy in display order", func() {
		Expect(Categories()).To(Equal([]Category{Plastic, Recyclable, Organic, Landfill, Hazardous, EWaste}))
	})

	It("should return a copy", func() {
		c := Categories()
		c[0] = "changed"
		Expect(Categories()[0]).To(Equal(Plastic))
	})

	It("should have a display entry for every category", func() {
		table := DisplayTable()
		Expect(table).To(HaveLen(len(Categories())))
		for i, c := range Categories() {
			Expect(table[i].Category).To(Equal(c))
			Expect(table[i].Label).NotTo(Equal("Unknown"))
		}
	})

	It("should map unknown tags to the Unknown entry", func() {
		info := Info(Category("glass"))
		Expect(info.Label).To(Equal("Unknown"))
		Expect(info.Category).To(Equal(Category("glass")))
	})
})

var _ = Describe("error taxonomy", func() {
	DescribeTable("KindOf",
		func(err error, kind Kind) {
			Expect(KindOf(err)).To(Equal(kind))
		},
		Entry("nil", nil, KindNone),
		Entry("wrapped rate limit", fmt.Errorf("%w: status 429", ErrRateLimited), KindRateLimited),
		Entry("double wrapped quota", fmt.Errorf("gateway: %w", fmt.Errorf("%w: 402", ErrQuotaExceeded)), KindQuotaExceeded),
		Entry("malformed", fmt.Errorf("%w: items", ErrMalformedResult), KindMalformedResult),
		Entry("foreign error", errors.New("boom"), KindUpstream),
	)

	It("should give one message per kind", func() {
		Expect(UserMessage(fmt.Errorf("%w: 429", ErrRateLimited))).To(Equal("Rate limit exceeded. Please try again in a moment."))
		Expect(UserMessage(ErrQuotaExceeded)).To(ContainSubstring("add credits"))
		Expect(UserMessage(nil)).To(BeEmpty())
	})

	It("should only mark transient failures retryable", func() {
		Expect(Retryable(ErrRateLimited)).To(BeTrue())
		Expect(Retryable(ErrUpstream)).To(BeTrue())
		Expect(Retryable(ErrUnauthorized)).To(BeFalse())
		Expect(Retryable(ErrQuotaExceeded)).To(BeFalse())
		Expect(Retryable(ErrInvalidInput)).To(BeFalse())
	})
})
