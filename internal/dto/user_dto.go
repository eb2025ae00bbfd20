package dto

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GoogleUserInfo holds user information obtained from Google.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// AuthClaims defines the custom claims for JWT.
type AuthClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// TokenResponse represents the response containing access and refresh tokens.
// @Description Response body for authentication tokens
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRequest represents the request body for refreshing a token.
// @Description Request body for refreshing JWT tokens
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// PreferencesResponse holds the learning preferences the quiz engine reads.
type PreferencesResponse struct {
	NativeLanguage        string   `json:"native_language"`
	TranslatorLanguages   []string `json:"translator_languages"`
	QuizEnabled           bool     `json:"quiz_enabled"`
	QuizFrequency         int      `json:"quiz_frequency"`
	DisabledQuestionTypes []string `json:"disabled_question_types"`
}

// UserProfileResponse defines the structure for a user's profile information.
// @Description User profile and learning preferences
type UserProfileResponse struct {
	ID                string              `json:"id"`
	Email             string              `json:"email"`
	Name              string              `json:"name,omitempty"`
	ProfilePictureURL string              `json:"profile_picture_url,omitempty"`
	SearchesSinceQuiz int                 `json:"searches_since_quiz"`
	Preferences       PreferencesResponse `json:"preferences"`
}

// UpdatePreferencesRequest replaces the user's learning preferences.
// Nil fields are left unchanged.
// @Description Request body for updating learning preferences
type UpdatePreferencesRequest struct {
	NativeLanguage        *string  `json:"native_language" validate:"omitempty,langcode"`
	TranslatorLanguages   []string `json:"translator_languages" validate:"omitempty,max=10,dive,langcode"`
	QuizEnabled           *bool    `json:"quiz_enabled"`
	QuizFrequency         *int     `json:"quiz_frequency" validate:"omitempty,min=1,max=100"`
	DisabledQuestionTypes []string `json:"disabled_question_types" validate:"omitempty,dive,questiontype"`
}

// --- Pagination DTOs ---

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// PaginationInfo defines pagination details for responses.
type PaginationInfo struct {
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
	Offset      int   `json:"offset"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
}

// NewPaginationInfo derives page numbers from a limit/offset window.
func NewPaginationInfo(total int, p Pagination) PaginationInfo {
	info := PaginationInfo{TotalItems: int64(total), Limit: p.Limit, Offset: p.Offset}
	if p.Limit > 0 {
		info.CurrentPage = p.Offset/p.Limit + 1
		info.TotalPages = (total + p.Limit - 1) / p.Limit
	}
	return info
}

// --- Progress DTOs ---

// StageCountResponse is the number of phrases at one stage.
type StageCountResponse struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// LearningRecordItem is one phrase's progress.
type LearningRecordItem struct {
	ID             string     `json:"id"`
	PhraseID       string     `json:"phrase_id"`
	Stage          string     `json:"stage"`
	TimesReviewed  int        `json:"times_reviewed"`
	TimesCorrect   int        `json:"times_correct"`
	TimesIncorrect int        `json:"times_incorrect"`
	NextReviewDate *time.Time `json:"next_review_date"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	FirstSeenAt    time.Time  `json:"first_seen_at"`
}

// ProgressResponse lists learning records with per-stage totals.
// @Description Learning progress
type ProgressResponse struct {
	Stages         []StageCountResponse `json:"stages"`
	Records        []LearningRecordItem `json:"records"`
	PaginationInfo PaginationInfo       `json:"pagination_info"`
}

// --- Quiz attempt history DTOs ---

// QuizAttemptItem represents a single quiz attempt in a list.
type QuizAttemptItem struct {
	AttemptID        string     `json:"attempt_id"`
	PhraseID         string     `json:"phrase_id"`
	QuestionType     string     `json:"question_type"`
	QuestionText     string     `json:"question_text"`
	Status           string     `json:"status"`
	SubmittedAnswer  string     `json:"submitted_answer,omitempty"`
	IsCorrect        *bool      `json:"is_correct,omitempty"`
	Explanation      string     `json:"explanation,omitempty"`
	EvaluationMethod string     `json:"evaluation_method,omitempty"`
	Fallback         bool       `json:"fallback"`
	CreatedAt        time.Time  `json:"created_at"`
	AnsweredAt       *time.Time `json:"answered_at,omitempty"`
}

// QuizAttemptsResponse is the response for listing user quiz attempts.
// @Description Quiz attempt history
type QuizAttemptsResponse struct {
	Attempts       []QuizAttemptItem `json:"attempts"`
	PaginationInfo PaginationInfo    `json:"pagination_info"`
}
