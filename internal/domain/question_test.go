package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestQuestionTypesForStage(t *testing.T) {
	assert.ElementsMatch(t, []QuestionType{QuestionMultipleChoiceTarget, QuestionMultipleChoiceSource}, QuestionTypesForStage(StageBasic))
	assert.ElementsMatch(t, []QuestionType{QuestionTextInputTarget, QuestionTextInputSource}, QuestionTypesForStage(StageIntermediate))
	assert.ElementsMatch(t, []QuestionType{QuestionContextual, QuestionDefinition, QuestionSynonym}, QuestionTypesForStage(StageAdvanced))
	assert.Empty(t, QuestionTypesForStage(StageMastered))
}

func TestParseQuestionType(t *testing.T) {
	qt, err := ParseQuestionType("Synonym")
	require.NoError(t, err)
	assert.Equal(t, QuestionSynonym, qt)

	_, err = ParseQuestionType("essay")
	assert.True(t, HasCode(err, CodeUnknownQuestionType))
}

func validMultipleChoice() QuestionPayload {
	return QuestionPayload{
		Type:            QuestionMultipleChoiceTarget,
		QuestionText:    `What does "geben" mean?`,
		Options:         []string{"to take", "to give", "to run", "to sleep"},
		AcceptedAnswers: []string{"to give"},
	}
}

func TestQuestionPayload_Validate(t *testing.T) {
	t.Run("ValidMultipleChoice", func(t *testing.T) {
		p := validMultipleChoice()
		assert.NoError(t, p.Validate())
	})

	t.Run("ThreeOptions", func(t *testing.T) {
		p := validMultipleChoice()
		p.Options = p.Options[:3]
		assert.True(t, HasCode(p.Validate(), CodeValidation))
	})

	t.Run("DuplicateOptions", func(t *testing.T) {
		p := validMultipleChoice()
		p.Options = []string{"to give", "To Give", "to run", "to sleep"}
		assert.Error(t, p.Validate())
	})

	t.Run("NoCorrectOption", func(t *testing.T) {
		p := validMultipleChoice()
		p.AcceptedAnswers = []string{"to hand"}
		assert.Error(t, p.Validate())
	})

	t.Run("TwoCorrectOptions", func(t *testing.T) {
		p := validMultipleChoice()
		p.AcceptedAnswers = []string{"to give", "to take"}
		assert.Error(t, p.Validate())
	})

	t.Run("TextInputWithOptions", func(t *testing.T) {
		p := QuestionPayload{Type: QuestionTextInputTarget, QuestionText: "Translate geben", Options: []string{"a"}, AcceptedAnswers: []string{"to give"}}
		assert.Error(t, p.Validate())
	})

	t.Run("TextInputValid", func(t *testing.T) {
		p := QuestionPayload{Type: QuestionTextInputTarget, QuestionText: "Translate geben", AcceptedAnswers: []string{"to give", "to hand"}}
		assert.NoError(t, p.Validate())
	})

	t.Run("MissingQuestionText", func(t *testing.T) {
		p := validMultipleChoice()
		p.QuestionText = " "
		assert.Error(t, p.Validate())
	})

	t.Run("QuestionTextTooLong", func(t *testing.T) {
		p := validMultipleChoice()
		p.QuestionText = strings.Repeat("ä", MaxQuestionTextRunes+1)
		assert.True(t, HasCode(p.Validate(), CodeValidation))

		p.QuestionText = strings.Repeat("ä", MaxQuestionTextRunes)
		assert.NoError(t, p.Validate())
	})

	t.Run("UnknownType", func(t *testing.T) {
		p := validMultipleChoice()
		p.Type = "essay"
		assert.True(t, HasCode(p.Validate(), CodeUnknownQuestionType))
	})
}

func TestIsRetryableLLMError(t *testing.T) {
	assert.True(t, IsRetryableLLMError(NewLLMError(LLMTransient, assert.AnError)))
	assert.True(t, IsRetryableLLMError(NewLLMError(LLMInvalidResponse, assert.AnError)))
	assert.False(t, IsRetryableLLMError(NewLLMError(LLMClient, assert.AnError)))
	assert.False(t, IsRetryableLLMError(nil))
}
