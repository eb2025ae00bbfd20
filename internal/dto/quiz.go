package dto

import "time"

// QuizSignalResponse tells the client whether a quiz is owed after a search.
// @Description Quiz trigger decision
type QuizSignalResponse struct {
	ShouldQuiz bool   `json:"should_quiz"`
	Reason     string `json:"reason"`
	PhraseID   string `json:"phrase_id,omitempty"`
}

// QuestionResponse is a generated question. Accepted answers are never included.
// @Description Quiz question shown to the learner
type QuestionResponse struct {
	AttemptID        string   `json:"attempt_id"`
	PhraseID         string   `json:"phrase_id"`
	Stage            string   `json:"stage"`
	QuestionType     string   `json:"question_type"`
	QuestionText     string   `json:"question_text"`
	Options          []string `json:"options"`
	QuestionLanguage string   `json:"question_language"`
	AnswerLanguage   string   `json:"answer_language"`
	ContextSentence  string   `json:"context_sentence,omitempty"`
	Fallback         bool     `json:"fallback"`
}

// NextQuestionResponse carries either a question or the reason none is available.
// @Description Next quiz question or the reason none is due
type NextQuestionResponse struct {
	Available bool              `json:"available"`
	Reason    string            `json:"reason,omitempty"`
	Question  *QuestionResponse `json:"question,omitempty"`
}

// SubmitAnswerRequest is the body of an answer submission.
// @Description Request body for answering a quiz question
type SubmitAnswerRequest struct {
	Answer string `json:"answer" validate:"required,max=500"`
}

// AnswerResultResponse is the verdict plus the learning-state change it caused.
// @Description Evaluation of a submitted answer
type AnswerResultResponse struct {
	AttemptID        string     `json:"attempt_id"`
	Correct          bool       `json:"correct"`
	Explanation      string     `json:"explanation"`
	MatchedAnswer    string     `json:"matched_answer,omitempty"`
	AcceptedAnswers  []string   `json:"accepted_answers"`
	EvaluationMethod string     `json:"evaluation_method"`
	PreviousStage    string     `json:"previous_stage"`
	NewStage         string     `json:"new_stage"`
	Advanced         bool       `json:"advanced"`
	NextReviewDate   *time.Time `json:"next_review_date"`
}

// ErrorResponse represents an error in the API response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
