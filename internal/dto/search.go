package dto

// SearchRequest is a phrase lookup.
// @Description Request body for translating a phrase
type SearchRequest struct {
	Text            string `json:"text" validate:"required,max=512"`
	SourceLanguage  string `json:"source_language" validate:"required,langcode"`
	TargetLanguage  string `json:"target_language" validate:"omitempty,langcode"`
	ContextSentence string `json:"context_sentence" validate:"max=2000"`
	Refresh         bool   `json:"refresh"`
}

// TranslationEntryResponse is one sense of the phrase.
type TranslationEntryResponse struct {
	Word  string `json:"word"`
	Tag   string `json:"tag,omitempty"`
	Gloss string `json:"gloss,omitempty"`
}

// SearchResponse is the translation plus the quiz signal for the caller.
// @Description Translation result
type SearchResponse struct {
	PhraseID       string                     `json:"phrase_id"`
	Text           string                     `json:"text"`
	SourceLanguage string                     `json:"source_language"`
	TargetLanguage string                     `json:"target_language"`
	Quizzable      bool                       `json:"quizzable"`
	Entries        []TranslationEntryResponse `json:"entries"`
	Quiz           *QuizSignalResponse        `json:"quiz,omitempty"`
}
