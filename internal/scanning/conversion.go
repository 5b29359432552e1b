package scanning

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/zombor/cleanscan/internal/waste"
)

// passThrough lists MIME types every provider accepts as-is
var passThrough = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// PrepareImage normalises an image before it is sent to a provider.
// JPEG, PNG, WebP and GIF pass through; HEIC/HEIF photos and the first page
// of a PDF are converted to PNG. Anything else is InvalidInput.
func PrepareImage(img Image) (Image, error) {
	mimeType := strings.ToLower(strings.TrimSpace(img.MIMEType))
	if mimeType == "" {
		mimeType = sniffMIME(img.Data)
	}

	switch {
	case mimeType == "application/pdf":
		data, err := pdfToImage(img.Data)
		if err != nil {
			return Image{}, fmt.Errorf("%w: converting PDF to image: %v", waste.ErrInvalidInput, err)
		}
		return Image{Data: data, MIMEType: "image/png"}, nil
	case isHEICFormat(img.Data) || isHEICMimeType(mimeType):
		data, err := heicToPNG(img.Data)
		if err != nil {
			return Image{}, fmt.Errorf("%w: %v", waste.ErrInvalidInput, err)
		}
		return Image{Data: data, MIMEType: "image/png"}, nil
	case passThrough[mimeType]:
		return Image{Data: img.Data, MIMEType: mimeType}, nil
	default:
		return Image{}, fmt.Errorf("%w: unsupported image format %q. Supported formats: JPEG, PNG, WebP, GIF, HEIC, HEIF, PDF", waste.ErrInvalidInput, mimeType)
	}
}

// pdfToImage renders the first page of a PDF to PNG
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// heicToPNG decodes a HEIC/HEIF photo and re-encodes it as PNG
func heicToPNG(imageData []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
