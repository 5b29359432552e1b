package scanning

import "github.com/zombor/cleanscan/internal/waste"

// Schema is the subset of JSON Schema declared to the model as the shape of
// its answer. It marshals to standard JSON Schema and is converted to each
// provider's own schema type by the adapters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

const (
	typeObject = "object"
	typeArray  = "array"
	typeString = "string"
	typeNumber = "number"
)

// OutputSchema returns the answer shape for a scan. The category enum is
// taken from waste.Categories so the declared and accepted sets never drift.
// Only items and tips are required.
func OutputSchema() *Schema {
	categories := make([]string, 0, len(waste.Categories()))
	for _, c := range waste.Categories() {
		categories = append(categories, string(c))
	}
	plasticTypes := make([]string, 0, len(waste.PlasticTypes()))
	for _, p := range waste.PlasticTypes() {
		plasticTypes = append(plasticTypes, string(p))
	}

	stringArray := func(desc string) *Schema {
		return &Schema{Type: typeArray, Description: desc, Items: &Schema{Type: typeString}}
	}

	return &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"items": {
				Type: typeArray,
				Items: &Schema{
					Type: typeObject,
					Properties: map[string]*Schema{
						"category": {Type: typeString, Enum: categories},
						"confidence": {
							Type:        typeNumber,
							Description: "Confidence score from 0-100",
						},
						"description": {
							Type:        typeString,
							Description: "Brief generic description of the item without brand names",
						},
						"plasticType": {
							Type:        typeString,
							Enum:        plasticTypes,
							Description: "Resin type, only for plastic items",
						},
					},
					Required: []string{"category", "confidence", "description"},
				},
			},
			"tips": stringArray("General waste disposal tips relevant to the items detected"),
			"plasticType": {
				Type:        typeString,
				Enum:        plasticTypes,
				Description: "Dominant plastic type in the image, if any plastic was detected",
			},
			"upcyclingIdeas": stringArray("Creative reuse ideas for the plastic detected"),
			"nearbyCenters": {
				Type:        typeArray,
				Description: "Recycling organizations near the user's location",
				Items: &Schema{
					Type: typeObject,
					Properties: map[string]*Schema{
						"name":    {Type: typeString},
						"type":    {Type: typeString},
						"address": {Type: typeString},
					},
					Required: []string{"name", "type", "address"},
				},
			},
		},
		Required: []string{"items", "tips"},
	}
}

// schemaTypes names a provider's schema type constants
type schemaTypes[K any] struct {
	object, array, number, str K
}

func (t schemaTypes[K]) of(name string) K {
	switch name {
	case typeObject:
		return t.object
	case typeArray:
		return t.array
	case typeNumber:
		return t.number
	default:
		return t.str
	}
}

// convertSchema walks s depth first and builds the provider schema node for
// each level from its already converted items and properties.
func convertSchema[T any](s *Schema, build func(s *Schema, items *T, props map[string]*T) *T) *T {
	if s == nil {
		return nil
	}
	var props map[string]*T
	if len(s.Properties) > 0 {
		props = make(map[string]*T, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = convertSchema(p, build)
		}
	}
	return build(s, convertSchema(s.Items, build), props)
}
