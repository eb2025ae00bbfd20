package domain

import "time"

// AttemptStatus is the persisted part of the quiz lifecycle.
// "triggered" is never stored: an attempt row exists only once a question was generated.
type AttemptStatus string

const (
	AttemptGenerated AttemptStatus = "generated"
	AttemptAnswered  AttemptStatus = "answered"
	AttemptSkipped   AttemptStatus = "skipped"
)

// QuizAttempt is one generated question and, once answered, its verdict.
type QuizAttempt struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	PhraseID         string          `json:"phrase_id"`
	LearningRecordID string          `json:"learning_record_id"`
	Payload          QuestionPayload `json:"payload"`
	Status           AttemptStatus   `json:"status"`
	SubmittedAnswer  *string         `json:"submitted_answer,omitempty"`
	IsCorrect        *bool           `json:"is_correct,omitempty"`
	MatchedAnswer    string          `json:"matched_answer,omitempty"`
	Explanation      string          `json:"explanation,omitempty"`
	EvaluationMethod string          `json:"evaluation_method,omitempty"`
	EvaluationTrace  string          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	AnsweredAt       *time.Time      `json:"answered_at,omitempty"`
}

// EvaluationMethod names the tier that produced a verdict.
type EvaluationMethod string

const (
	EvalMultipleChoice     EvaluationMethod = "multiple_choice"
	EvalExact              EvaluationMethod = "exact"
	EvalArticleInsensitive EvaluationMethod = "article_insensitive"
	EvalLLM                EvaluationMethod = "llm"
	EvalFailClosed         EvaluationMethod = "fail_closed"
)

// Evaluation is the verdict for one submitted answer.
type Evaluation struct {
	Correct       bool             `json:"correct"`
	MatchedAnswer string           `json:"matched_answer,omitempty"`
	Explanation   string           `json:"explanation"`
	Method        EvaluationMethod `json:"method"`
	Trace         string           `json:"-"`
}

// TriggerReason explains why no quiz fired.
type TriggerReason string

const (
	TriggerReady               TriggerReason = "ready"
	TriggerDisabled            TriggerReason = "disabled"
	TriggerThresholdNotReached TriggerReason = "threshold_not_reached"
	TriggerNoPhrasesDue        TriggerReason = "no_phrases_due"
)

// TriggerResult is either a chosen record (ShouldQuiz) or a reason.
type TriggerResult struct {
	ShouldQuiz bool
	Reason     TriggerReason
	Record     *LearningRecord
}

func NoTrigger(reason TriggerReason) *TriggerResult {
	return &TriggerResult{Reason: reason}
}

// RecordEligibility applies the quiz rules to a record requested by phrase.
// The search threshold does not apply to an explicit request.
func RecordEligibility(user *User, record *LearningRecord, sourceLanguage string, now time.Time) TriggerReason {
	if !user.QuizEnabled {
		return TriggerDisabled
	}
	if !record.IsDue(now) || !user.QuizzesLanguage(sourceLanguage) {
		return TriggerNoPhrasesDue
	}
	return TriggerReady
}
