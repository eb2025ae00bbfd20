package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID                    string         `db:"id"`
	GoogleID              sql.NullString `db:"google_id"`
	Email                 sql.NullString `db:"email"`
	Name                  sql.NullString `db:"name"`
	ProfilePictureURL     sql.NullString `db:"profile_picture_url"`
	NativeLanguage        string         `db:"native_language"`
	TranslatorLanguages   StringSlice    `db:"translator_languages"`
	QuizEnabled           int            `db:"quiz_enabled"`
	QuizFrequency         int            `db:"quiz_frequency"`
	SearchesSinceQuiz     int            `db:"searches_since_quiz"`
	DisabledQuestionTypes StringSlice    `db:"disabled_question_types"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

type Phrase struct {
	ID             string    `db:"id"`
	Text           string    `db:"text"`
	NormalizedText string    `db:"normalized_text"`
	SourceLanguage string    `db:"source_language"`
	Quizzable      int       `db:"quizzable"`
	SearchCount    int       `db:"search_count"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type Translation struct {
	ID             string             `db:"id"`
	PhraseID       string             `db:"phrase_id"`
	TargetLanguage string             `db:"target_language"`
	Entries        TranslationEntries `db:"entries"`
	Model          sql.NullString     `db:"model"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
}

type LearningRecord struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	PhraseID        string         `db:"phrase_id"`
	Stage           string         `db:"stage"`
	TimesReviewed   int            `db:"times_reviewed"`
	TimesCorrect    int            `db:"times_correct"`
	TimesIncorrect  int            `db:"times_incorrect"`
	NextReviewDate  sql.NullTime   `db:"next_review_date"`
	LastReviewedAt  sql.NullTime   `db:"last_reviewed_at"`
	FirstSeenAt     time.Time      `db:"first_seen_at"`
	ContextSentence sql.NullString `db:"context_sentence"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type QuizAttempt struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	PhraseID         string         `db:"phrase_id"`
	LearningRecordID string         `db:"learning_record_id"`
	QuestionType     string         `db:"question_type"`
	QuestionText     string         `db:"question_text"`
	Options          StringSlice    `db:"options"`
	AcceptedAnswers  StringSlice    `db:"accepted_answers"`
	QuestionLanguage sql.NullString `db:"question_language"`
	AnswerLanguage   sql.NullString `db:"answer_language"`
	ContextSentence  sql.NullString `db:"context_sentence"`
	IsFallback       int            `db:"is_fallback"`
	Status           string         `db:"status"`
	SubmittedAnswer  sql.NullString `db:"submitted_answer"`
	IsCorrect        sql.NullInt64  `db:"is_correct"`
	MatchedAnswer    sql.NullString `db:"matched_answer"`
	Explanation      sql.NullString `db:"explanation"`
	EvaluationMethod sql.NullString `db:"evaluation_method"`
	EvaluationTrace  sql.NullString `db:"evaluation_trace"`
	CreatedAt        time.Time      `db:"created_at"`
	AnsweredAt       sql.NullTime   `db:"answered_at"`
}

// StageCount is one row of a GROUP BY stage query.
type StageCount struct {
	Stage string `db:"stage"`
	Count int    `db:"cnt"`
}
