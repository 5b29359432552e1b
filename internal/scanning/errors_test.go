package scanning

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"

	"github.com/zombor/cleanscan/internal/waste"
)

var _ = Describe("apiError", func() {
	DescribeTable("mapping SDK errors",
		func(in error, expected error) {
			Expect(errors.Is(apiError("gemini", in), expected)).To(BeTrue())
		},
		Entry("googleapi 429", &googleapi.Error{Code: http.StatusTooManyRequests}, waste.ErrRateLimited),
		Entry("googleapi 403", &googleapi.Error{Code: http.StatusForbidden}, waste.ErrUnauthorized),
		Entry("wrapped googleapi 402", fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusPaymentRequired}), waste.ErrQuotaExceeded),
		Entry("googleapi 500", &googleapi.Error{Code: http.StatusInternalServerError}, waste.ErrUpstream),
		Entry("plain error", errors.New("connection reset"), waste.ErrUpstream),
	)

	It("should pass cancellation through", func() {
		err := apiError("gemini", fmt.Errorf("rpc: %w", context.Canceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(errors.Is(err, waste.ErrUpstream)).To(BeFalse())
	})
})

var _ = Describe("statusError", func() {
	It("should name the provider and status", func() {
		err := statusError("ollama", http.StatusBadGateway)
		Expect(errors.Is(err, waste.ErrUpstream)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("ollama status 502"))
	})
})
