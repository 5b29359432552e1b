package scan

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zombor/cleanscan/internal/waste"
)

// wsFrame mirrors the server envelope with typed payload fields
type wsFrame struct {
	Type string `json:"type"`
	Data struct {
		ScanID uint64        `json:"scanId"`
		Report *waste.ScanReport `json:"report"`
		Code   waste.Kind    `json:"code"`
		Error  string        `json:"error"`
	} `json:"data"`
}

var _ = Describe("WebSocket sessions", func() {
	var (
		classifier  *mockClassifier
		cfg         ServerConfig
		metrics     *Metrics
		ghttpServer *ghttp.Server
		conn        *websocket.Conn
	)

	readFrame := func() wsFrame {
		var frame wsFrame
		Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
		_, data, err := conn.ReadMessage()
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(data, &frame)).To(Succeed())
		return frame
	}

	send := func(messageType string, data any) {
		msg := map[string]any{"type": messageType}
		if data != nil {
			msg["data"] = data
		}
		Expect(conn.WriteJSON(msg)).To(Succeed())
	}

	BeforeEach(func() {
		cfg = ServerConfig{}
	})

	JustBeforeEach(func() {
		metrics = NewMetrics(prometheus.NewRegistry())
		service := NewService(classifier, nil, metrics, 0)
		server := NewServerWithMux(service, cfg, http.NewServeMux())

		ghttpServer = ghttp.NewServer()
		ghttpServer.RouteToHandler(http.MethodGet, "/ws", server.ServeHTTP)

		url := "ws" + strings.TrimPrefix(ghttpServer.URL(), "http") + "/ws"
		var err error
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if conn != nil {
			conn.Close()
		}
		ghttpServer.Close()
	})

	When("a single scan completes", func() {
		BeforeEach(func() {
			classifier = newMockClassifier(mockResponse{raw: plasticResult})
		})

		It("should announce the scan and deliver its report", func() {
			send(msgScan, map[string]any{"image": testImage, "location": map[string]string{"city": "Pune", "state": "Maharashtra"}})

			started := readFrame()
			Expect(started.Type).To(Equal(msgScanStarted))
			Expect(started.Data.ScanID).To(Equal(uint64(1)))

			result := readFrame()
			Expect(result.Type).To(Equal(msgScanResult))
			Expect(result.Data.ScanID).To(Equal(uint64(1)))
			Expect(result.Data.Report.Plastic).NotTo(BeNil())
			Expect(result.Data.Report.Location.City).To(Equal("Pune"))
		})
	})

	When("a newer scan supersedes a slower one", func() {
		var gate chan struct{}

		BeforeEach(func() {
			gate = make(chan struct{})
			classifier = newMockClassifier(
				mockResponse{raw: organicResult, gate: gate},
				mockResponse{raw: plasticResult},
			)
		})

		It("should never deliver the superseded outcome", func() {
			send(msgScan, map[string]any{"image": testImage})
			Expect(readFrame().Data.ScanID).To(Equal(uint64(1)))

			Eventually(classifier.calls).Should(Equal(1))
			send(msgScan, map[string]any{"image": testImage})

			started := readFrame()
			Expect(started.Type).To(Equal(msgScanStarted))
			Expect(started.Data.ScanID).To(Equal(uint64(2)))

			result := readFrame()
			Expect(result.Type).To(Equal(msgScanResult))
			Expect(result.Data.ScanID).To(Equal(uint64(2)))
			Expect(result.Data.Report.Groups[0].Category).To(Equal(waste.Plastic))

			close(gate)
			Eventually(func() float64 { return testutil.ToFloat64(metrics.stale) }).Should(Equal(1.0))

			send(msgPing, nil)
			Expect(readFrame().Type).To(Equal(msgPong))
		})
	})

	When("the client starts over", func() {
		var gate chan struct{}

		BeforeEach(func() {
			gate = make(chan struct{})
			classifier = newMockClassifier(mockResponse{raw: plasticResult, gate: gate})
		})

		It("should drop the in-flight scan", func() {
			send(msgScan, map[string]any{"image": testImage})
			Expect(readFrame().Type).To(Equal(msgScanStarted))
			Eventually(classifier.calls).Should(Equal(1))

			send(msgNewScan, nil)
			send(msgPing, nil)
			Expect(readFrame().Type).To(Equal(msgPong))

			close(gate)
			Eventually(func() float64 { return testutil.ToFloat64(metrics.stale) }).Should(Equal(1.0))

			send(msgPing, nil)
			Expect(readFrame().Type).To(Equal(msgPong))
		})
	})

	When("the scan fails", func() {
		BeforeEach(func() {
			classifier = newMockClassifier(mockResponse{raw: plasticResult})
		})

		It("should report the error kind for the scan", func() {
			send(msgScan, map[string]any{"image": ""})
			Expect(readFrame().Type).To(Equal(msgScanStarted))

			failed := readFrame()
			Expect(failed.Type).To(Equal(msgScanError))
			Expect(failed.Data.ScanID).To(Equal(uint64(1)))
			Expect(failed.Data.Code).To(Equal(waste.KindInvalidInput))
			Expect(failed.Data.Error).To(Equal(waste.UserMessage(waste.ErrInvalidInput)))
			Expect(classifier.calls()).To(BeZero())
		})
	})

	When("a scan is refused by the rate limit", func() {
		var gate chan struct{}

		BeforeEach(func() {
			cfg.RatePerMinute = 1
			cfg.RateBurst = 1
			gate = make(chan struct{})
			classifier = newMockClassifier(mockResponse{raw: plasticResult, gate: gate})
		})

		It("should keep the scan in flight", func() {
			send(msgScan, map[string]any{"image": testImage})
			Expect(readFrame().Data.ScanID).To(Equal(uint64(1)))
			Eventually(classifier.calls).Should(Equal(1))

			send(msgScan, map[string]any{"image": testImage})
			refused := readFrame()
			Expect(refused.Type).To(Equal(msgScanError))
			Expect(refused.Data.ScanID).To(BeZero())
			Expect(refused.Data.Code).To(Equal(waste.KindRateLimited))

			close(gate)
			result := readFrame()
			Expect(result.Type).To(Equal(msgScanResult))
			Expect(result.Data.ScanID).To(Equal(uint64(1)))
			Expect(testutil.ToFloat64(metrics.stale)).To(BeZero())
			Expect(classifier.calls()).To(Equal(1))
		})
	})

	When("the message type is unknown", func() {
		BeforeEach(func() {
			classifier = newMockClassifier()
		})

		It("should answer with an error frame", func() {
			send("upload", nil)
			frame := readFrame()
			Expect(frame.Type).To(Equal(msgError))
			Expect(frame.Data.Error).To(Equal("Unknown message type"))
		})
	})
})
