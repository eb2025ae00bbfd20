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

// AnswerEvaluator judges a submitted answer, cheapest tier first.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, payload domain.QuestionPayload, answer string, translation *domain.TranslationRecord) (*domain.Evaluation, error)
}

type answerEvaluator struct {
	llm     domain.Completer
	retry   BackoffPolicy
	timeout time.Duration
}

func NewAnswerEvaluator(llm domain.Completer, retry BackoffPolicy, llmCfg config.LLMConfig) AnswerEvaluator {
	return &answerEvaluator{
		llm:     llm,
		retry:   retry,
		timeout: llmCfg.Timeout,
	}
}

type llmVerdict struct {
	IsCorrect     *bool  `json:"is_correct"`
	Explanation   string `json:"explanation"`
	MatchedAnswer string `json:"matched_answer"`
}

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_correct":     map[string]any{"type": "boolean"},
		"explanation":    map[string]any{"type": "string"},
		"matched_answer": map[string]any{"type": "string"},
	},
	"required":             []string{"is_correct", "explanation", "matched_answer"},
	"additionalProperties": false,
}

const verdictSystemPrompt = `You grade vocabulary quiz answers. Respond with ONLY a JSON object matching the given schema.

Rules:
1. Accept differences in capitalization, a missing or extra article, and typos of one or two characters.
2. Accept any synonym that appears in the translation data.
3. Reject answers that name a clearly different word or concept.
4. matched_answer is the accepted answer the learner meant, or an empty string.
5. The explanation is one or two sentences addressed to the learner.`

func (e *answerEvaluator) Evaluate(ctx context.Context, payload domain.QuestionPayload, answer string, translation *domain.TranslationRecord) (*domain.Evaluation, error) {
	submitted := domain.NormalizeText(answer)
	if submitted == "" {
		return nil, domain.NewEmptyAnswerError()
	}
	if len(payload.AcceptedAnswers) == 0 {
		logger.Get().Error("Question has no accepted answers, marking answer incorrect",
			zap.String("question_type", string(payload.Type)))
		return &domain.Evaluation{Explanation: "We could not confirm this answer.", Method: domain.EvalFailClosed}, nil
	}

	if payload.Type.IsMultipleChoice() {
		for _, accepted := range payload.AcceptedAnswers {
			if domain.EqualFolded(submitted, accepted) {
				return &domain.Evaluation{Correct: true, MatchedAnswer: accepted, Explanation: "Correct!", Method: domain.EvalMultipleChoice}, nil
			}
		}
		return &domain.Evaluation{
			Explanation: fmt.Sprintf("The correct answer is %q.", payload.AcceptedAnswers[0]),
			Method:      domain.EvalMultipleChoice,
		}, nil
	}

	folded := domain.FoldText(submitted)
	for _, accepted := range payload.AcceptedAnswers {
		if folded == domain.FoldText(accepted) {
			return &domain.Evaluation{Correct: true, MatchedAnswer: accepted, Explanation: "Correct!", Method: domain.EvalExact}, nil
		}
	}

	stripped := stripArticle(folded, payload.AnswerLanguage)
	for _, accepted := range payload.AcceptedAnswers {
		if stripped == stripArticle(domain.FoldText(accepted), payload.AnswerLanguage) {
			return &domain.Evaluation{
				Correct:       true,
				MatchedAnswer: accepted,
				Explanation:   fmt.Sprintf("Correct! We were looking for %q.", accepted),
				Method:        domain.EvalArticleInsensitive,
			}, nil
		}
	}

	if e.llm != nil {
		eval, err := e.judge(ctx, payload, submitted, translation)
		if err == nil {
			return eval, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.Get().Warn("LLM answer evaluation failed, marking answer incorrect",
			zap.String("question_type", string(payload.Type)),
			zap.Error(err))
	}

	return &domain.Evaluation{
		Explanation: "We could not confirm this answer. Accepted answers: " + strings.Join(payload.AcceptedAnswers, ", "),
		Method:      domain.EvalFailClosed,
	}, nil
}

func (e *answerEvaluator) judge(ctx context.Context, payload domain.QuestionPayload, submitted string, translation *domain.TranslationRecord) (*domain.Evaluation, error) {
	input := map[string]any{
		"question":         payload.QuestionText,
		"question_type":    string(payload.Type),
		"answer_language":  payload.AnswerLanguage,
		"accepted_answers": payload.AcceptedAnswers,
		"learner_answer":   submitted,
	}
	if translation != nil {
		input["translation_data"] = translation.Entries
	}
	if payload.ContextSentence != "" {
		input["context_sentence"] = payload.ContextSentence
	}
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	req := domain.CompletionRequest{
		Name:    "answer_verdict",
		System:  verdictSystemPrompt,
		Prompt:  "Grade this answer:\n" + string(b),
		Schema:  verdictSchema,
		Timeout: e.timeout,
	}

	var eval *domain.Evaluation
	err = e.retry.Do(ctx, "evaluate_answer", func(ctx context.Context) error {
		raw, err := e.llm.Complete(ctx, req)
		if err != nil {
			return err
		}
		var v llmVerdict
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return domain.NewLLMError(domain.LLMInvalidResponse, fmt.Errorf("verdict is not valid JSON: %w", err))
		}
		if v.IsCorrect == nil {
			return domain.NewLLMError(domain.LLMInvalidResponse, errors.New("verdict is missing is_correct"))
		}
		explanation := strings.TrimSpace(v.Explanation)
		if explanation == "" {
			return domain.NewLLMError(domain.LLMInvalidResponse, errors.New("verdict is missing an explanation"))
		}
		eval = &domain.Evaluation{
			Correct:     *v.IsCorrect,
			Explanation: explanation,
			Method:      domain.EvalLLM,
			Trace:       raw,
		}
		if eval.Correct {
			eval.MatchedAnswer = domain.NormalizeText(v.MatchedAnswer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return eval, nil
}
