package service

import (
	"fmt"
	"hash/fnv"

	"lingo-quiz/internal/domain"
)

// Placeholder distractors; one spare covers a correct answer that collides with a placeholder.
var fallbackDistractors = []string{"(none of these)", "(not sure)", "(something else)", "(no answer)"}

// buildFallbackQuestion builds a question from cached translations only.
// Multiple-choice types stay multiple choice; everything else becomes text_input_target.
func buildFallbackQuestion(in GenerationInput, qType domain.QuestionType, words []string) (*domain.QuestionPayload, error) {
	if len(words) == 0 {
		return nil, domain.NewNotFoundError("no cached translations for phrase").
			WithContext("phrase_id", in.Phrase.ID)
	}

	var payload *domain.QuestionPayload
	switch qType {
	case domain.QuestionMultipleChoiceTarget:
		correct := words[0]
		payload = &domain.QuestionPayload{
			Type:            qType,
			QuestionText:    fmt.Sprintf("What does %q mean?", in.Phrase.Text),
			Options:         fallbackOptions(in.Phrase.ID, correct),
			AcceptedAnswers: []string{correct},
		}
	case domain.QuestionMultipleChoiceSource:
		correct := in.Phrase.Text
		payload = &domain.QuestionPayload{
			Type:            qType,
			QuestionText:    fmt.Sprintf("Which word means %q?", words[0]),
			Options:         fallbackOptions(in.Phrase.ID, correct),
			AcceptedAnswers: []string{correct},
		}
	default:
		qType = domain.QuestionTextInputTarget
		payload = &domain.QuestionPayload{
			Type:            qType,
			QuestionText:    fmt.Sprintf("Translate %q.", in.Phrase.Text),
			AcceptedAnswers: append([]string(nil), words...),
		}
	}

	payload.QuestionLanguage, payload.AnswerLanguage = questionLanguages(qType, in.Phrase.SourceLanguage, in.NativeLanguage)
	payload.Fallback = true
	if err := payload.Validate(); err != nil {
		return nil, domain.NewInternalError("fallback question is invalid", err)
	}
	return payload, nil
}

// fallbackOptions places correct among three placeholders at a position derived from the phrase id.
func fallbackOptions(phraseID, correct string) []string {
	options := make([]string, 0, domain.MultipleChoiceOptions)
	options = append(options, correct)
	for _, d := range fallbackDistractors {
		if len(options) == domain.MultipleChoiceOptions {
			break
		}
		if !domain.EqualFolded(d, correct) {
			options = append(options, d)
		}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(phraseID))
	shift := int(h.Sum32() % uint32(len(options)))

	rotated := make([]string, len(options))
	for i, o := range options {
		rotated[(i+shift)%len(options)] = o
	}
	return rotated
}
