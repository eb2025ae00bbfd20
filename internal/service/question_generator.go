package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingo-quiz/internal/config"
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"go.uber.org/zap"
)

// GenerationInput is everything needed to build one question.
type GenerationInput struct {
	Type            domain.QuestionType
	Phrase          *domain.Phrase
	Translation     *domain.TranslationRecord
	NativeLanguage  string
	ContextSentence string
}

// QuestionGenerator produces a validated question payload, falling back to a local
// question when the LLM cannot deliver one.
type QuestionGenerator interface {
	Generate(ctx context.Context, in GenerationInput) (*domain.QuestionPayload, error)
}

type questionGenerator struct {
	llm         domain.Completer
	retry       BackoffPolicy
	temperature float64
	timeout     time.Duration
}

func NewQuestionGenerator(llm domain.Completer, retry BackoffPolicy, llmCfg config.LLMConfig) QuestionGenerator {
	return &questionGenerator{
		llm:         llm,
		retry:       retry,
		temperature: llmCfg.Temperature,
		timeout:     llmCfg.Timeout,
	}
}

// llmQuestion is the response contract shared by every archetype.
type llmQuestion struct {
	QuestionText    string   `json:"question_text"`
	Options         []string `json:"options"`
	CorrectAnswer   string   `json:"correct_answer"`
	AcceptedAnswers []string `json:"accepted_answers"`
	ContextSentence string   `json:"context_sentence"`
}

var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question_text":    map[string]any{"type": "string"},
		"options":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"correct_answer":   map[string]any{"type": "string"},
		"accepted_answers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"context_sentence": map[string]any{"type": "string"},
	},
	"required":             []string{"question_text", "options", "correct_answer", "accepted_answers", "context_sentence"},
	"additionalProperties": false,
}

const questionSystemPrompt = `You write vocabulary quiz questions for language learners.
Respond with ONLY a JSON object matching the given schema. Use empty strings or empty arrays for fields that do not apply.`

var archetypeInstructions = map[domain.QuestionType]string{
	domain.QuestionMultipleChoiceTarget: `Ask what the phrase means in %[3]s. Give exactly 4 options in %[3]s: the correct_answer, which must be one of the known translations, and 3 plausible but wrong distractors that are not translations of the phrase. accepted_answers must be empty.`,
	domain.QuestionMultipleChoiceSource: `Show one of the known translations and ask which %[2]s word it translates. Give exactly 4 options in %[2]s: the correct_answer, which must be the phrase itself, and 3 plausible but wrong %[2]s distractors. accepted_answers must be empty.`,
	domain.QuestionTextInputTarget:      `Ask the learner to type the %[3]s translation of the phrase. options must be empty. accepted_answers may add common %[3]s synonyms that are also correct.`,
	domain.QuestionTextInputSource:      `Show one of the known translations and ask the learner to type the %[2]s phrase. options must be empty. accepted_answers may add accepted spelling variants of the phrase.`,
	domain.QuestionContextual:           `Show the example sentence and ask what the phrase means in this context, answered in %[3]s. Copy the sentence into context_sentence. options must be empty. accepted_answers may add %[3]s translations that fit the sentence.`,
	domain.QuestionDefinition:           `Write a short %[2]s definition of the phrase without using the phrase itself and ask which %[2]s word is defined. options must be empty.`,
	domain.QuestionSynonym:              `Ask for a %[2]s synonym of the phrase. options must be empty. accepted_answers must list every acceptable %[2]s synonym and must not contain the phrase itself.`,
}

func (g *questionGenerator) Generate(ctx context.Context, in GenerationInput) (*domain.QuestionPayload, error) {
	l := logger.Get()
	if in.Phrase == nil {
		return nil, domain.NewNotFoundError("phrase not found")
	}
	words := in.Translation.Words()
	if len(words) == 0 {
		return nil, domain.NewNotFoundError("no cached translations for phrase").
			WithContext("phrase_id", in.Phrase.ID)
	}
	if !in.Type.IsValid() {
		return nil, domain.NewUnknownQuestionTypeError(string(in.Type))
	}

	qType := in.Type
	if qType == domain.QuestionContextual && strings.TrimSpace(in.ContextSentence) == "" {
		l.Info("No example sentence captured, degrading contextual question",
			zap.String("phrase_id", in.Phrase.ID))
		qType = domain.QuestionTextInputTarget
	}

	if g.llm == nil {
		return buildFallbackQuestion(in, qType, words)
	}

	req, err := g.request(in, qType, words)
	if err != nil {
		return nil, domain.NewInternalError("failed to build question request", err)
	}

	var payload *domain.QuestionPayload
	err = g.retry.Do(ctx, "generate_question", func(ctx context.Context) error {
		raw, err := g.llm.Complete(ctx, req)
		if err != nil {
			return err
		}
		p, err := parseQuestion(raw, in, qType, words)
		if err != nil {
			return domain.NewLLMError(domain.LLMInvalidResponse, err)
		}
		payload = p
		return nil
	})
	if err == nil {
		return payload, nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}

	l.Warn("Question generation failed, using fallback question",
		zap.String("phrase_id", in.Phrase.ID),
		zap.String("question_type", string(qType)),
		zap.Error(err))
	return buildFallbackQuestion(in, qType, words)
}

func (g *questionGenerator) request(in GenerationInput, qType domain.QuestionType, words []string) (domain.CompletionRequest, error) {
	input := map[string]any{
		"phrase":              in.Phrase.Text,
		"phrase_language":     in.Phrase.SourceLanguage,
		"learner_language":    in.NativeLanguage,
		"known_translations":  words,
		"translation_entries": in.Translation.Entries,
		"question_type":       string(qType),
	}
	if qType == domain.QuestionContextual {
		input["example_sentence"] = in.ContextSentence
	}
	b, err := json.Marshal(input)
	if err != nil {
		return domain.CompletionRequest{}, err
	}

	instruction := fmt.Sprintf(archetypeInstructions[qType], in.Phrase.Text, in.Phrase.SourceLanguage, in.NativeLanguage)
	return domain.CompletionRequest{
		Name:        "quiz_question",
		System:      questionSystemPrompt,
		Prompt:      instruction + "\n\nInput:\n" + string(b),
		Schema:      questionSchema,
		Temperature: g.temperature,
		Timeout:     g.timeout,
	}, nil
}

// questionLanguages returns the language the prompt is written in and the language of the answer.
func questionLanguages(qType domain.QuestionType, source, native string) (string, string) {
	switch qType {
	case domain.QuestionMultipleChoiceSource, domain.QuestionTextInputSource:
		return native, source
	case domain.QuestionDefinition, domain.QuestionSynonym:
		return source, source
	default:
		return source, native
	}
}

// parseQuestion checks the model output against the archetype contract.
func parseQuestion(raw string, in GenerationInput, qType domain.QuestionType, words []string) (*domain.QuestionPayload, error) {
	var resp llmQuestion
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("question is not valid JSON: %w", err)
	}
	questionText := domain.NormalizeText(resp.QuestionText)
	if questionText == "" {
		return nil, errors.New("question_text is missing")
	}

	qLang, aLang := questionLanguages(qType, in.Phrase.SourceLanguage, in.NativeLanguage)
	payload := &domain.QuestionPayload{
		Type:             qType,
		QuestionText:     questionText,
		QuestionLanguage: qLang,
		AnswerLanguage:   aLang,
	}
	extra := normalizeAll(resp.AcceptedAnswers)

	switch qType {
	case domain.QuestionMultipleChoiceTarget, domain.QuestionMultipleChoiceSource:
		options := normalizeAll(resp.Options)
		correct := domain.NormalizeText(resp.CorrectAnswer)
		if correct == "" {
			return nil, errors.New("correct_answer is missing")
		}
		if !domain.ContainsFolded(options, correct) {
			return nil, errors.New("correct_answer is not among the options")
		}
		if qType == domain.QuestionMultipleChoiceTarget {
			if !domain.ContainsFolded(words, correct) {
				return nil, fmt.Errorf("correct_answer %q is not a known translation", correct)
			}
			for _, o := range options {
				if !domain.EqualFolded(o, correct) && domain.ContainsFolded(words, o) {
					return nil, fmt.Errorf("distractor %q is also a known translation", o)
				}
			}
		} else if !domain.EqualFolded(correct, in.Phrase.Text) {
			return nil, errors.New("correct_answer must be the phrase")
		}
		payload.Options = options
		payload.AcceptedAnswers = []string{correct}

	case domain.QuestionTextInputTarget:
		payload.AcceptedAnswers = mergeAnswers(words, extra)
	case domain.QuestionContextual:
		payload.AcceptedAnswers = mergeAnswers(words, extra)
		payload.ContextSentence = domain.NormalizeText(in.ContextSentence)
	case domain.QuestionTextInputSource:
		payload.AcceptedAnswers = mergeAnswers([]string{in.Phrase.Text}, extra)
	case domain.QuestionDefinition:
		payload.AcceptedAnswers = []string{in.Phrase.Text}
	case domain.QuestionSynonym:
		synonyms := make([]string, 0, len(extra))
		for _, s := range extra {
			if !domain.EqualFolded(s, in.Phrase.Text) {
				synonyms = append(synonyms, s)
			}
		}
		if len(synonyms) == 0 {
			return nil, errors.New("synonym question has no synonyms")
		}
		payload.AcceptedAnswers = mergeAnswers(nil, synonyms)
	}

	if !qType.IsMultipleChoice() && len(normalizeAll(resp.Options)) > 0 {
		return nil, errors.New("text questions must not carry options")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := domain.NormalizeText(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// mergeAnswers concatenates the lists, dropping case-folded duplicates.
func mergeAnswers(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, a := range list {
			if a == "" || domain.ContainsFolded(out, a) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}
