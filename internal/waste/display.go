package waste

// CategoryInfo holds the presentation attributes of a category
type CategoryInfo struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Emoji    string   `json:"emoji"`
	Color    string   `json:"color"`
}

var unknownCategory = CategoryInfo{Label: "Unknown", Emoji: "❓", Color: "muted"}

// displayTable is built once; rendering never switches on category tags.
var displayTable = buildDisplayTable()

func buildDisplayTable() map[Category]CategoryInfo {
	rows := []CategoryInfo{
		{Category: Plastic, Label: "Plastic", Emoji: "🧴", Color: "plastic"},
		{Category: Recyclable, Label: "Recyclable", Emoji: "♻️", Color: "recyclable"},
		{Category: Organic, Label: "Organic / Compostable", Emoji: "🌱", Color: "organic"},
		{Category: Landfill, Label: "Landfill", Emoji: "🗑", Color: "landfill"},
		{Category: Hazardous, Label: "Hazardous", Emoji: "⚠️", Color: "destructive"},
		{Category: EWaste, Label: "E-Waste", Emoji: "🔌", Color: "ewaste"},
	}
	table := make(map[Category]CategoryInfo, len(rows))
	for _, row := range rows {
		table[row.Category] = row
	}
	return table
}

// Info returns the display attributes for c, or an "Unknown" entry
func Info(c Category) CategoryInfo {
	if info, ok := displayTable[c]; ok {
		return info
	}
	info := unknownCategory
	info.Category = c
	return info
}

// DisplayTable returns the attributes of every declared category in display order
func DisplayTable() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(categories))
	for _, c := range categories {
		out = append(out, displayTable[c])
	}
	return out
}
