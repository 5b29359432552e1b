package waste

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Normalize validates the raw structured answer of the model and decodes it
// into a ClassificationResult. Violations are reported as ErrMalformedResult
// and never repaired.
func Normalize(raw []byte) (*ClassificationResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedResult)
	}

	// Check presence and shape on a raw map first; typed decoding alone
	// cannot tell a missing field from a zero value.
	var rawMap map[string]any
	if err := json.Unmarshal(raw, &rawMap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if rawMap == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedResult)
	}

	rawItems, ok := rawMap["items"].([]any)
	if !ok {
		return nil, malformed("items", "missing or not an array")
	}
	rawTips, ok := rawMap["tips"].([]any)
	if !ok {
		return nil, malformed("tips", "missing or not an array")
	}

	result := &ClassificationResult{
		Items: make([]Item, 0, len(rawItems)),
		Tips:  make([]string, 0, len(rawTips)),
	}

	for i, ri := range rawItems {
		item, err := normalizeItem(i, ri)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, item)
	}

	for i, rt := range rawTips {
		tip, ok := rt.(string)
		if !ok {
			return nil, malformed(fmt.Sprintf("tips[%d]", i), "not a string")
		}
		result.Tips = append(result.Tips, tip)
	}

	if v, present := rawMap["plasticType"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, malformed("plasticType", "not a string")
		}
		if s != "" && !PlasticType(s).Valid() {
			return nil, malformed("plasticType", fmt.Sprintf("unknown plastic type %q", s))
		}
		result.PlasticType = PlasticType(s)
	}

	ideas, err := stringList(rawMap, "upcyclingIdeas")
	if err != nil {
		return nil, err
	}
	result.UpcyclingIdeas = ideas

	centers, err := centerList(rawMap)
	if err != nil {
		return nil, err
	}
	result.NearbyCenters = centers

	return result, nil
}

func normalizeItem(i int, v any) (Item, error) {
	path := fmt.Sprintf("items[%d]", i)
	obj, ok := v.(map[string]any)
	if !ok {
		return Item{}, malformed(path, "not an object")
	}

	cat, ok := obj["category"].(string)
	if !ok {
		return Item{}, malformed(path+".category", "missing or not a string")
	}
	if !Category(cat).Valid() {
		return Item{}, malformed(path+".category", fmt.Sprintf("unknown category %q", cat))
	}

	conf, ok := obj["confidence"].(float64)
	if !ok {
		return Item{}, malformed(path+".confidence", "missing or not a number")
	}
	if conf < 0 || conf > 100 {
		return Item{}, malformed(path+".confidence", fmt.Sprintf("%v outside [0, 100]", conf))
	}

	desc, ok := obj["description"].(string)
	if !ok {
		return Item{}, malformed(path+".description", "missing or not a string")
	}

	item := Item{
		Category:    Category(cat),
		Confidence:  conf,
		Description: desc,
	}

	if pv, present := obj["plasticType"]; present && pv != nil {
		pt, ok := pv.(string)
		if !ok {
			return Item{}, malformed(path+".plasticType", "not a string")
		}
		if pt != "" {
			if item.Category != Plastic {
				return Item{}, malformed(path+".plasticType", "only allowed on plastic items")
			}
			if !PlasticType(pt).Valid() {
				return Item{}, malformed(path+".plasticType", fmt.Sprintf("unknown plastic type %q", pt))
			}
			item.PlasticType = PlasticType(pt)
		}
	}

	return item, nil
}

func stringList(m map[string]any, key string) ([]string, error) {
	v, present := m[key]
	if !present || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, malformed(key, "not an array")
	}
	out := make([]string, 0, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, malformed(fmt.Sprintf("%s[%d]", key, i), "not a string")
		}
		out = append(out, s)
	}
	return out, nil
}

func centerList(m map[string]any) ([]RecyclingCenter, error) {
	v, present := m["nearbyCenters"]
	if !present || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, malformed("nearbyCenters", "not an array")
	}
	out := make([]RecyclingCenter, 0, len(list))
	for i, e := range list {
		path := fmt.Sprintf("nearbyCenters[%d]", i)
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, malformed(path, "not an object")
		}
		var c RecyclingCenter
		fields := []struct {
			name string
			dst  *string
		}{{"name", &c.Name}, {"type", &c.Type}, {"address", &c.Address}}
		for _, f := range fields {
			s, ok := obj[f.name].(string)
			if !ok {
				return nil, malformed(path+"."+f.name, "missing or not a string")
			}
			*f.dst = s
		}
		out = append(out, c)
	}
	return out, nil
}

func malformed(path, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedResult, path, reason)
}
