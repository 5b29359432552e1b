package waste

import "math"

// Group is one display bucket of items sharing a category
type Group struct {
	CategoryInfo
	Items []Item `json:"items"`
}

// GroupItems partitions items into buckets in the fixed display order.
// Categories without items produce no bucket. Item order inside a bucket
// follows the input order.
func GroupItems(items []Item) []Group {
	buckets := make(map[Category][]Item, len(categories))
	for _, item := range items {
		buckets[item.Category] = append(buckets[item.Category], item)
	}

	groups := make([]Group, 0, len(buckets))
	for _, c := range categories {
		if len(buckets[c]) == 0 {
			continue
		}
		groups = append(groups, Group{CategoryInfo: Info(c), Items: buckets[c]})
	}
	return groups
}

// ShowPlasticPanel decides whether the plastic enrichment panel is shown.
// It is true when any item is plastic OR the model reported an overall
// plastic type, even if no plastic item was itemized.
func ShowPlasticPanel(r *ClassificationResult) bool {
	if r == nil {
		return false
	}
	if r.PlasticType != "" {
		return true
	}
	for _, item := range r.Items {
		if item.Category == Plastic {
			return true
		}
	}
	return false
}

// Summary holds derived counts over a finalized result
type Summary struct {
	Total          int              `json:"total"`
	Counts         map[Category]int `json:"counts"`
	RecyclableRate int              `json:"recyclableRate"` // percent
	LandfillRate   int              `json:"landfillRate"`   // percent
}

// Summarize derives counts and rates from a finalized result
func Summarize(r *ClassificationResult) Summary {
	s := Summary{Counts: make(map[Category]int, len(categories))}
	if r == nil {
		return s
	}
	for _, item := range r.Items {
		s.Counts[item.Category]++
	}
	s.Total = len(r.Items)
	s.RecyclableRate = Percent(s.Counts[Recyclable], s.Total)
	s.LandfillRate = Percent(s.Counts[Landfill], s.Total)
	return s
}

// Percent returns part/total as a whole percentage rounded half-up, or 0 when total is 0
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)*100/float64(total) + 0.5))
}

// Enrichment is the plastic-specific guidance attached to a result
type Enrichment struct {
	PlasticType    PlasticType       `json:"plasticType,omitempty"`
	UpcyclingIdeas []string          `json:"upcyclingIdeas,omitempty"`
	NearbyCenters  []RecyclingCenter `json:"nearbyCenters,omitempty"`
}

// ScanReport is the display-ready view of one scan
type ScanReport struct {
	Result         *ClassificationResult `json:"result"`
	Groups         []Group               `json:"groups"`
	Plastic        *Enrichment           `json:"plastic,omitempty"`
	Summary        Summary               `json:"summary"`
	Location       *Location             `json:"location,omitempty"`
	LocationNotice string                `json:"locationNotice,omitempty"`
}

// NewReport builds the display view of a validated result
func NewReport(r *ClassificationResult, loc *Location, notice string) *ScanReport {
	report := &ScanReport{
		Result:         r,
		Groups:         GroupItems(r.Items),
		Summary:        Summarize(r),
		LocationNotice: notice,
	}
	if loc.Valid() {
		l := *loc
		report.Location = &l
	}
	if ShowPlasticPanel(r) {
		report.Plastic = &Enrichment{
			PlasticType:    dominantPlasticType(r),
			UpcyclingIdeas: r.UpcyclingIdeas,
			NearbyCenters:  r.NearbyCenters,
		}
	}
	return report
}

// dominantPlasticType prefers the overall type and falls back to the first
// itemized plastic type.
func dominantPlasticType(r *ClassificationResult) PlasticType {
	if r.PlasticType != "" {
		return r.PlasticType
	}
	for _, item := range r.Items {
		if item.Category == Plastic && item.PlasticType != "" {
			return item.PlasticType
		}
	}
	return ""
}
