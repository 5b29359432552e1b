package geo

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/cleanscan/internal/waste"
)

var _ = Describe("Nominatim", func() {
	var (
		upstream *ghttp.Server
		locator  *Nominatim
		coords   Coordinates
		loc      waste.Location
		err      error
	)

	BeforeEach(func() {
		upstream = ghttp.NewServer()
		locator = NewNominatim(upstream.URL(), 5*time.Second)
		coords = Coordinates{Lat: 18.5204, Lon: 73.8567}
	})

	AfterEach(func() {
		upstream.Close()
	})

	JustBeforeEach(func() {
		loc, err = locator.Locate(context.Background(), coords)
	})

	When("the address has a city", func() {
		BeforeEach(func() {
			upstream.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/reverse", "addressdetails=1&format=json&lat=18.5204&lon=73.8567"),
				ghttp.VerifyHeaderKV("User-Agent", "CleanScan-App"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"address": map[string]any{"city": "Pune", "county": "Haveli", "state": "Maharashtra"},
				}),
			))
		})

		It("should return the city and state", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(loc).To(Equal(waste.Location{City: "Pune", State: "Maharashtra"}))
		})
	})

	When("the address only has a village", func() {
		BeforeEach(func() {
			upstream.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"address": map[string]any{"village": "Ralegan Siddhi", "county": "Parner"},
			}))
		})

		It("should fall back through town, village and county", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(loc.City).To(Equal("Ralegan Siddhi"))
			Expect(loc.State).To(Equal("Unknown"))
		})
	})

	When("the address is empty", func() {
		BeforeEach(func() {
			upstream.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"address": map[string]any{}}))
		})

		It("should resolve to Unknown", func() {
			Expect(loc).To(Equal(waste.Location{City: "Unknown", State: "Unknown"}))
		})
	})

	When("nominatim reports an error", func() {
		BeforeEach(func() {
			upstream.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"error": "Unable to geocode"}))
		})

		It("should return a resolution failure", func() {
			Expect(errors.Is(err, waste.ErrGeolocationUnavailable)).To(BeTrue())
			Expect(ReasonOf(err)).To(Equal(ReasonResolutionFailed))
		})
	})

	When("nominatim fails", func() {
		BeforeEach(func() {
			upstream.AppendHandlers(ghttp.RespondWith(http.StatusServiceUnavailable, "busy"))
		})

		It("should return a resolution failure", func() {
			Expect(ReasonOf(err)).To(Equal(ReasonResolutionFailed))
		})
	})

	When("the coordinates are invalid", func() {
		BeforeEach(func() {
			coords = Coordinates{Lat: 200}
		})

		It("should fail without calling nominatim", func() {
			Expect(errors.Is(err, waste.ErrGeolocationUnavailable)).To(BeTrue())
			Expect(upstream.ReceivedRequests()).To(BeEmpty())
		})
	})
})
