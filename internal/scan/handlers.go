package scan

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/cleanscan/internal/geo"
	"github.com/zombor/cleanscan/internal/waste"
)

// maxUploadSize bounds request bodies; high-resolution phone photos are
// well below it even after base64 expansion
const maxUploadSize = int64(25 << 20)

// writeJSON writes v as JSON with a fresh request id
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", uuid.NewString())
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes the mapped error response for err
func writeError(w http.ResponseWriter, err error) {
	resp := mapError(err)
	writeJSON(w, resp.StatusCode, resp)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// classifyRequest is the edge contract body: image plus language and optional location
type classifyRequest struct {
	Image    string          `json:"image"`
	Language string          `json:"language"`
	Location *waste.Location `json:"location"`
}

// handleClassify returns the bare ClassificationResult for an image
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var body classifyRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	report, err := s.service.Scan(r.Context(), Request{
		Image:    body.Image,
		Language: body.Language,
		Location: body.Location,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report.Result)
}

// handleCreateScan accepts a JSON scan request or a multipart upload and
// returns the display-ready report
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var (
		req Request
		err error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, err = parseMultipartScan(w, r)
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := s.service.Scan(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleCategories returns the category display table in display order
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, waste.DisplayTable())
}

// handleLanguages returns the supported languages
func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, waste.Languages())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: image is too large", waste.ErrInvalidInput)
		}
		return fmt.Errorf("%w: decoding request body: %v", waste.ErrInvalidInput, err)
	}
	return nil
}

// parseMultipartScan reads a scan from a form with a "file" part and
// optional language, city, state, lat, lon and locationError fields
func parseMultipartScan(w http.ResponseWriter, r *http.Request) (Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		return Request{}, fmt.Errorf("%w: parsing form: %v", waste.ErrInvalidInput, err)
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return Request{}, fmt.Errorf("%w: no image provided", waste.ErrInvalidInput)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Request{}, fmt.Errorf("%w: reading file data: %v", waste.ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return Request{}, fmt.Errorf("%w: empty file", waste.ErrInvalidInput)
	}

	req := Request{
		Image:         "data:" + uploadContentType(header.Header.Get("Content-Type"), header.Filename) + ";base64," + base64.StdEncoding.EncodeToString(data),
		Language:      r.FormValue("language"),
		LocationError: r.FormValue("locationError"),
	}

	if city, state := r.FormValue("city"), r.FormValue("state"); city != "" || state != "" {
		req.Location = &waste.Location{City: city, State: state}
	}

	if lat, lon := r.FormValue("lat"), r.FormValue("lon"); lat != "" && lon != "" {
		latF, latErr := strconv.ParseFloat(lat, 64)
		lonF, lonErr := strconv.ParseFloat(lon, 64)
		if latErr != nil || lonErr != nil {
			return Request{}, fmt.Errorf("%w: invalid coordinates", waste.ErrInvalidInput)
		}
		req.Coordinates = &geo.Coordinates{Lat: latF, Lon: lonF}
	}

	return req, nil
}

// uploadContentType determines the MIME type of an uploaded file, falling
// back to its extension. An empty result lets the image decoder sniff it.
func uploadContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return ""
	}
}
