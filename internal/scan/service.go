package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zombor/cleanscan/internal/geo"
	"github.com/zombor/cleanscan/internal/scanning"
	"github.com/zombor/cleanscan/internal/waste"
)

// Request is one scan as submitted by a client. The client may send a
// resolved location, raw coordinates to resolve, or the reason it has none.
type Request struct {
	Image         string           `json:"image"`
	Language      string           `json:"language"`
	Location      *waste.Location  `json:"location,omitempty"`
	Coordinates   *geo.Coordinates `json:"coordinates,omitempty"`
	LocationError string           `json:"locationError,omitempty"`
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the scan pipeline: locate, build, classify, normalize
type Service struct {
	classifier scanning.Classifier
	locator    geo.Locator
	metrics    *Metrics
	timeout    time.Duration
	timeSource TimeSource
}

// NewService creates a new Service. locator and metrics may be nil.
func NewService(classifier scanning.Classifier, locator geo.Locator, metrics *Metrics, timeout time.Duration) *Service {
	return NewServiceWithDeps(classifier, locator, metrics, timeout, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with a custom time source for testing
func NewServiceWithDeps(classifier scanning.Classifier, locator geo.Locator, metrics *Metrics, timeout time.Duration, timeSrc TimeSource) *Service {
	return &Service{
		classifier: classifier,
		locator:    locator,
		metrics:    metrics,
		timeout:    timeout,
		timeSource: timeSrc,
	}
}

// Metrics returns the metrics the service records into
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Scan classifies one image. Location resolution fails open into an
// advisory notice on the report; every other failure aborts the scan and
// no partial report is returned.
func (s *Service) Scan(ctx context.Context, req Request) (*waste.ScanReport, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, fmt.Errorf("%w: no image provided", waste.ErrInvalidInput)
	}

	loc, notice := s.resolveLocation(ctx, req)

	built, err := scanning.BuildRequest(scanning.ScanContext{
		Image:    req.Image,
		Language: req.Language,
		Location: loc,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.classify(ctx, built)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("Scan failed",
				"provider", s.classifier.Name(),
				"language", built.Language.Tag,
				"image_bytes", len(built.Image.Data),
				"kind", waste.KindOf(err),
				"error", err,
			)
		}
		return nil, err
	}

	s.metrics.observeItems(result.Items)
	slog.Info("Scan classified",
		"provider", s.classifier.Name(),
		"language", built.Language.Tag,
		"items", len(result.Items),
		"located", loc != nil,
	)

	return waste.NewReport(result, loc, notice), nil
}

func (s *Service) classify(ctx context.Context, req *scanning.Request) (*waste.ClassificationResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.timeSource.Now()
	raw, err := s.classifier.Classify(ctx, req)
	if err == nil {
		var result *waste.ClassificationResult
		result, err = waste.Normalize(raw)
		s.metrics.observeScan(s.classifier.Name(), err, s.timeSource.Now().Sub(start))
		return result, err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: classification timed out: %v", waste.ErrUpstream, err)
	}
	s.metrics.observeScan(s.classifier.Name(), err, s.timeSource.Now().Sub(start))
	return nil, err
}

// resolveLocation runs before classification because the instruction
// depends on it. It never fails the scan.
func (s *Service) resolveLocation(ctx context.Context, req Request) (*waste.Location, string) {
	if req.Location.Valid() {
		s.metrics.observeLocation("client")
		l := *req.Location
		return &l, ""
	}

	if req.Coordinates != nil {
		if s.locator == nil {
			s.metrics.observeLocation("unavailable")
			return nil, geo.ReasonUnsupported.Notice()
		}
		loc, err := s.locator.Locate(ctx, *req.Coordinates)
		if err != nil {
			slog.Warn("Location lookup failed, continuing without location", "error", err)
			s.metrics.observeLocation("unavailable")
			return nil, geo.ReasonOf(err).Notice()
		}
		s.metrics.observeLocation("geocoded")
		return &loc, ""
	}

	if req.LocationError != "" {
		s.metrics.observeLocation("unavailable")
		return nil, geo.ParseReason(req.LocationError).Notice()
	}

	return nil, ""
}
