package scanning

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/zombor/cleanscan/internal/waste"
)

// ScanContext is the input bundle for one scan. Image is a data URL
// (data:<mime>;base64,<payload>) or bare base64.
type ScanContext struct {
	Image    string
	Language string
	Location *waste.Location
}

const baseInstruction = `Analyze this waste image and classify each item you can identify into one of these categories: ` +
	`plastic (plastic bottles, bags, wrappers, food containers), ` +
	`recyclable (clean cans, glass, paper, cardboard), ` +
	`organic (food scraps, peels, shells, garden waste), ` +
	`landfill (used tissue, dirty cloth, mixed or unrecyclable materials), ` +
	`hazardous (batteries, chemicals, paint, sharp objects) or ` +
	`ewaste (phones, chargers, cables, small electronics). ` +
	`For each item, provide a generic description without brand names and a confidence score from 0 to 100. ` +
	`Keep descriptions simple and clear.`

// BuildRequest turns a ScanContext into a provider-agnostic Request. It is
// a pure transformation; the only failure is a missing or undecodable image.
func BuildRequest(sc ScanContext) (*Request, error) {
	img, err := DecodeImage(sc.Image)
	if err != nil {
		return nil, err
	}

	lang := waste.ResolveLanguage(sc.Language)

	var loc *waste.Location
	if sc.Location.Valid() {
		l := *sc.Location
		loc = &l
	}

	return &Request{
		Instruction:     Instruction(lang, loc),
		Schema:          OutputSchema(),
		ToolName:        ToolName,
		ToolDescription: toolDescription,
		Image:           img,
		Language:        lang,
		Location:        loc,
	}, nil
}

// Instruction assembles the model instruction. The location and translation
// clauses are independent and compose.
func Instruction(lang waste.Language, loc *waste.Location) string {
	var b strings.Builder
	b.WriteString(baseInstruction)

	if loc.Valid() {
		fmt.Fprintf(&b, " For any plastic item detected, set its plasticType to one of PET, HDPE, LDPE, PP, PS, PVC or Other, "+
			"report the dominant plasticType for the whole image, suggest 2-3 practical upcycling ideas, "+
			"and list 2-3 plausible local recycling organizations near %s, %s with their name, type and address.",
			loc.City, loc.State)
	}

	if !lang.IsEnglish() {
		fmt.Fprintf(&b, " Write every text field of your answer in %s. "+
			"Keep category and plasticType values exactly as the declared English enum values.",
			lang.Name)
		if loc.Valid() {
			b.WriteString(" Translate the upcycling ideas and the organization names, types and addresses as well.")
		}
	}

	return b.String()
}

// DecodeImage decodes a data URL or bare base64 string. The MIME type comes
// from the data URL prefix when present and is sniffed otherwise.
func DecodeImage(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, fmt.Errorf("%w: no image provided", waste.ErrInvalidInput)
	}

	var mime string
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return Image{}, fmt.Errorf("%w: data url without payload", waste.ErrInvalidInput)
		}
		meta := s[len("data:"):idx]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			meta = meta[:semi]
		}
		mime = strings.ToLower(strings.TrimSpace(meta))
		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var urlErr error
		if data, urlErr = base64.URLEncoding.DecodeString(s); urlErr != nil {
			return Image{}, fmt.Errorf("%w: decoding base64: %v", waste.ErrInvalidInput, err)
		}
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", waste.ErrInvalidInput)
	}

	if mime == "" {
		mime = sniffMIME(data)
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// DataURL renders the image back to data URL form
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func sniffMIME(data []byte) string {
	if isHEICFormat(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}
