package domain

import (
	"strings"
	"unicode/utf8"
)

// QuestionType is one of the seven question archetypes.
type QuestionType string

const (
	QuestionMultipleChoiceTarget QuestionType = "multiple_choice_target"
	QuestionMultipleChoiceSource QuestionType = "multiple_choice_source"
	QuestionTextInputTarget      QuestionType = "text_input_target"
	QuestionTextInputSource      QuestionType = "text_input_source"
	QuestionContextual           QuestionType = "contextual"
	QuestionDefinition           QuestionType = "definition"
	QuestionSynonym              QuestionType = "synonym"
)

// MultipleChoiceOptions is the exact option count of a multiple-choice question.
const MultipleChoiceOptions = 4

// MaxQuestionTextRunes bounds generated question text to what quiz_attempts.question_text holds.
const MaxQuestionTextRunes = 1000

var stageQuestionTypes = map[Stage][]QuestionType{
	StageBasic:        {QuestionMultipleChoiceTarget, QuestionMultipleChoiceSource},
	StageIntermediate: {QuestionTextInputTarget, QuestionTextInputSource},
	StageAdvanced:     {QuestionContextual, QuestionDefinition, QuestionSynonym},
}

// QuestionTypesForStage returns the archetypes a stage draws from; mastered has none.
func QuestionTypesForStage(stage Stage) []QuestionType {
	types := stageQuestionTypes[stage]
	out := make([]QuestionType, len(types))
	copy(out, types)
	return out
}

// AdvancedQuestionTypes are the archetypes users may disable.
func AdvancedQuestionTypes() []QuestionType {
	return QuestionTypesForStage(StageAdvanced)
}

func ParseQuestionType(s string) (QuestionType, error) {
	qt := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	if !qt.IsValid() {
		return "", NewUnknownQuestionTypeError(s)
	}
	return qt, nil
}

func (q QuestionType) IsValid() bool {
	for _, types := range stageQuestionTypes {
		for _, t := range types {
			if t == q {
				return true
			}
		}
	}
	return false
}

func (q QuestionType) IsMultipleChoice() bool {
	return q == QuestionMultipleChoiceTarget || q == QuestionMultipleChoiceSource
}

// AnswersInSourceLanguage is true when the expected answer is in the phrase's language.
func (q QuestionType) AnswersInSourceLanguage() bool {
	switch q {
	case QuestionMultipleChoiceSource, QuestionTextInputSource, QuestionDefinition, QuestionSynonym:
		return true
	}
	return false
}

// QuestionPayload is what a learner is shown plus the accepted-answer set.
type QuestionPayload struct {
	Type             QuestionType `json:"question_type"`
	QuestionText     string       `json:"question_text"`
	Options          []string     `json:"options"`
	AcceptedAnswers  []string     `json:"accepted_answers"`
	QuestionLanguage string       `json:"question_language"`
	AnswerLanguage   string       `json:"answer_language"`
	ContextSentence  string       `json:"context_sentence,omitempty"`
	Fallback         bool         `json:"fallback"`
}

// Validate enforces the payload shape every archetype must satisfy.
func (p *QuestionPayload) Validate() error {
	if !p.Type.IsValid() {
		return NewUnknownQuestionTypeError(string(p.Type))
	}
	if strings.TrimSpace(p.QuestionText) == "" {
		return NewValidationError("question text is empty")
	}
	if n := utf8.RuneCountInString(p.QuestionText); n > MaxQuestionTextRunes {
		return NewValidationError("question text is too long").WithContext("runes", n)
	}
	if len(p.AcceptedAnswers) == 0 {
		return NewValidationError("accepted answers are empty")
	}
	for _, a := range p.AcceptedAnswers {
		if strings.TrimSpace(a) == "" {
			return NewValidationError("accepted answers contain an empty value")
		}
	}

	if !p.Type.IsMultipleChoice() {
		if len(p.Options) != 0 {
			return NewValidationError("text questions must not carry options")
		}
		return nil
	}

	if len(p.Options) != MultipleChoiceOptions {
		return NewValidationError("multiple choice questions need exactly 4 options").
			WithContext("options", len(p.Options))
	}
	seen := make(map[string]struct{}, len(p.Options))
	correct := 0
	for _, o := range p.Options {
		key := FoldText(o)
		if key == "" {
			return NewValidationError("multiple choice option is empty")
		}
		if _, dup := seen[key]; dup {
			return NewValidationError("multiple choice options must be distinct")
		}
		seen[key] = struct{}{}
		if ContainsFolded(p.AcceptedAnswers, o) {
			correct++
		}
	}
	if correct != 1 {
		return NewValidationError("multiple choice questions need exactly one correct option").
			WithContext("correct_options", correct)
	}
	return nil
}

// ContainsFolded reports whether list contains s under FoldText comparison.
func ContainsFolded(list []string, s string) bool {
	key := FoldText(s)
	for _, item := range list {
		if FoldText(item) == key {
			return true
		}
	}
	return false
}
