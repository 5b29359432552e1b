package scanning

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cleanscan/internal/waste"
)

// testPNG returns a tiny valid PNG image
func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func testDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG())
}

var _ = Describe("BuildRequest", func() {
	var (
		sc  ScanContext
		req *Request
		err error
	)

	BeforeEach(func() {
		sc = ScanContext{Image: testDataURL(), Language: "english"}
	})

	JustBeforeEach(func() {
		req, err = BuildRequest(sc)
	})

	It("should attach the output schema and tool", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Schema).To(Equal(OutputSchema()))
		Expect(req.ToolName).To(Equal("classify_waste"))
		Expect(req.ToolDescription).NotTo(BeEmpty())
	})

	It("should decode the image and its MIME type", func() {
		Expect(req.Image.MIMEType).To(Equal("image/png"))
		Expect(req.Image.Data).To(Equal(testPNG()))
	})

	It("should name every category in the instruction", func() {
		for _, c := range waste.Categories() {
			Expect(req.Instruction).To(ContainSubstring(string(c)))
		}
	})

	When("language is hindi and there is no location", func() {
		BeforeEach(func() {
			sc.Language = "hindi"
		})

		It("should request Hindi output", func() {
			Expect(req.Instruction).To(ContainSubstring("in Hindi"))
			Expect(req.Language.Name).To(Equal("Hindi"))
		})

		It("should not include plastic-center guidance", func() {
			Expect(req.Instruction).NotTo(ContainSubstring("recycling organizations"))
			Expect(req.Instruction).NotTo(ContainSubstring("recycling center"))
			Expect(req.Instruction).NotTo(ContainSubstring("organization"))
			Expect(req.Instruction).NotTo(ContainSubstring("upcycling"))
			Expect(req.Location).To(BeNil())
		})
	})

	When("language is english and location is Pune, Maharashtra", func() {
		BeforeEach(func() {
			sc.Location = &waste.Location{City: "Pune", State: "Maharashtra"}
		})

		It("should request plastic enrichment near the location", func() {
			Expect(req.Instruction).To(ContainSubstring("near Pune, Maharashtra"))
			Expect(req.Instruction).To(ContainSubstring("upcycling ideas"))
			Expect(req.Location).To(Equal(&waste.Location{City: "Pune", State: "Maharashtra"}))
		})

		It("should not request translation", func() {
			Expect(req.Instruction).NotTo(ContainSubstring("Write every text field"))
		})
	})

	When("language is tamil and location is present", func() {
		BeforeEach(func() {
			sc.Language = "tamil"
			sc.Location = &waste.Location{City: "Chennai", State: "Tamil Nadu"}
		})

		It("should compose both clauses", func() {
			Expect(req.Instruction).To(ContainSubstring("near Chennai, Tamil Nadu"))
			Expect(req.Instruction).To(ContainSubstring("in Tamil"))
			Expect(req.Instruction).To(ContainSubstring("Translate the upcycling ideas"))
		})
	})

	When("english with no location", func() {
		It("should be the base instruction only", func() {
			Expect(req.Instruction).To(Equal(baseInstruction))
		})
	})

	When("the location is missing a state", func() {
		BeforeEach(func() {
			sc.Location = &waste.Location{City: "Pune"}
		})

		It("should treat it as no location", func() {
			Expect(req.Instruction).To(Equal(baseInstruction))
			Expect(req.Location).To(BeNil())
		})
	})

	When("the language is unknown", func() {
		BeforeEach(func() {
			sc.Language = "klingon"
		})

		It("should fall back to English without error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Language).To(Equal(waste.English))
			Expect(req.Instruction).To(Equal(baseInstruction))
		})
	})

	When("the image is empty", func() {
		BeforeEach(func() {
			sc.Image = ""
		})

		It("should return InvalidInput", func() {
			Expect(errors.Is(err, waste.ErrInvalidInput)).To(BeTrue())
			Expect(req).To(BeNil())
		})
	})

	When("the image is not base64", func() {
		BeforeEach(func() {
			sc.Image = "data:image/png;base64,%%%not-base64%%%"
		})

		It("should return InvalidInput", func() {
			Expect(errors.Is(err, waste.ErrInvalidInput)).To(BeTrue())
		})
	})

	When("the image is bare base64", func() {
		BeforeEach(func() {
			sc.Image = base64.StdEncoding.EncodeToString(testPNG())
		})

		It("should sniff the MIME type", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Image.MIMEType).To(Equal("image/png"))
		})
	})
})

var _ = Describe("OutputSchema", func() {
	var schema *Schema

	BeforeEach(func() {
		schema = OutputSchema()
	})

	It("should require exactly items and tips", func() {
		Expect(schema.Required).To(Equal([]string{"items", "tips"}))
	})

	It("should declare the category enum from the taxonomy", func() {
		enum := schema.Properties["items"].Items.Properties["category"].Enum
		expected := make([]string, 0, len(waste.Categories()))
		for _, c := range waste.Categories() {
			expected = append(expected, string(c))
		}
		Expect(enum).To(Equal(expected))
	})

	It("should require category, confidence and description on items", func() {
		Expect(schema.Properties["items"].Items.Required).To(ConsistOf("category", "confidence", "description"))
	})

	It("should marshal to standard JSON Schema", func() {
		raw, err := json.Marshal(schema)
		Expect(err).NotTo(HaveOccurred())
		var decoded map[string]any
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded["type"]).To(Equal("object"))
		Expect(decoded["required"]).To(Equal([]any{"items", "tips"}))
	})
})

var _ = Describe("Instruction", func() {
	DescribeTable("leaving out enrichment guidance without a location",
		func(tag string) {
			instruction := Instruction(waste.ResolveLanguage(tag), nil)
			Expect(instruction).NotTo(ContainSubstring("upcycling"))
			Expect(instruction).NotTo(ContainSubstring("recycling center"))
			Expect(instruction).NotTo(ContainSubstring("organization"))
		},
		Entry("english", "english"),
		Entry("hindi", "hindi"),
		Entry("bengali", "bengali"),
		Entry("telugu", "telugu"),
		Entry("tamil", "tamil"),
	)
})
