package waste

// Category is the coarse disposal bucket assigned to a detected item
type Category string

const (
	Plastic    Category = "plastic"
	Recyclable Category = "recyclable"
	Organic    Category = "organic"
	Landfill   Category = "landfill"
	Hazardous  Category = "hazardous"
	EWaste     Category = "ewaste"
)

// PlasticType is the resin sub-classification of a plastic item
type PlasticType string

const (
	PET          PlasticType = "PET"
	HDPE         PlasticType = "HDPE"
	LDPE         PlasticType = "LDPE"
	PP           PlasticType = "PP"
	PS           PlasticType = "PS"
	PVC          PlasticType = "PVC"
	OtherPlastic PlasticType = "Other"
)

// Item is one detected physical object in the photographed scene
type Item struct {
	Category    Category    `json:"category"`
	Confidence  float64     `json:"confidence"` // 0-100
	Description string      `json:"description"`
	PlasticType PlasticType `json:"plasticType,omitempty"`
}

// RecyclingCenter is an advisory suggestion; it is never checked against a directory
type RecyclingCenter struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

// ClassificationResult is the full response for one scan
type ClassificationResult struct {
	Items          []Item            `json:"items"`
	Tips           []string          `json:"tips"`
	PlasticType    PlasticType       `json:"plasticType,omitempty"`
	UpcyclingIdeas []string          `json:"upcyclingIdeas,omitempty"`
	NearbyCenters  []RecyclingCenter `json:"nearbyCenters,omitempty"`
}

// Location is a resolved city/state pair
type Location struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Valid reports whether both city and state are present
func (l *Location) Valid() bool {
	return l != nil && l.City != "" && l.State != ""
}

var categories = []Category{Plastic, Recyclable, Organic, Landfill, Hazardous, EWaste}

var plasticTypes = []PlasticType{PET, HDPE, LDPE, PP, PS, PVC, OtherPlastic}

// Categories returns the declared taxonomy in display order.
// The same slice drives the schema declared to the model and result validation.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// PlasticTypes returns the accepted plastic sub-types
func PlasticTypes() []PlasticType {
	out := make([]PlasticType, len(plasticTypes))
	copy(out, plasticTypes)
	return out
}

// Valid reports whether c is part of the declared taxonomy
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of the accepted plastic sub-types
func (p PlasticType) Valid() bool {
	for _, known := range plasticTypes {
		if p == known {
			return true
		}
	}
	return false
}
