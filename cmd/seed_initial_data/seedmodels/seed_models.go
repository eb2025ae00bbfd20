package seedmodels

// SeedEntry defines one sense of a translation in the JSON seed file.
type SeedEntry struct {
	Word  string `json:"word"`
	Tag   string `json:"tag,omitempty"`
	Gloss string `json:"gloss,omitempty"`
}

// SeedTranslation is the stored translation of a phrase into one language.
type SeedTranslation struct {
	TargetLanguage string      `json:"target_language"`
	Entries        []SeedEntry `json:"entries"`
}

// SeedPhrase defines one phrase in the JSON seed file.
type SeedPhrase struct {
	Text         string            `json:"text"`
	Translations []SeedTranslation `json:"translations"`
}

// SeedLanguage groups the phrases of one source language.
type SeedLanguage struct {
	SourceLanguage string       `json:"source_language"`
	Phrases        []SeedPhrase `json:"phrases"`
}
