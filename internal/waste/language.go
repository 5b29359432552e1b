package waste

import "strings"

// Language is a supported output language
type Language struct {
	Tag    string `json:"tag"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

// English is the fallback language
var English = Language{Tag: "english", Name: "English", Native: "English"}

var languages = []Language{
	English,
	{Tag: "hindi", Name: "Hindi", Native: "हिन्दी"},
	{Tag: "bengali", Name: "Bengali", Native: "বাংলা"},
	{Tag: "telugu", Name: "Telugu", Native: "తెలుగు"},
	{Tag: "tamil", Name: "Tamil", Native: "தமிழ்"},
}

// Languages returns the closed set of supported languages
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// ResolveLanguage maps a language tag to a supported language.
// Unknown or empty tags resolve to English without error.
func ResolveLanguage(tag string) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, l := range languages {
		if l.Tag == tag {
			return l
		}
	}
	return English
}

// IsEnglish reports whether output needs no translation
func (l Language) IsEnglish() bool {
	return l.Tag == English.Tag
}
