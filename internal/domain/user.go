package domain

import (
	"strings"
	"time"
)

// User is the account plus the learning preferences the quiz engine reads.
type User struct {
	ID                    string
	GoogleID              string
	Email                 string
	Name                  string
	ProfilePictureURL     string
	NativeLanguage        string
	TranslatorLanguages   []string
	QuizEnabled           bool
	QuizFrequency         int
	SearchesSinceQuiz     int
	DisabledQuestionTypes []QuestionType
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewUser creates a user with default learning preferences.
func NewUser(id, googleID, email, nativeLanguage string, quizFrequency int, now time.Time) *User {
	return &User{
		ID:             id,
		GoogleID:       googleID,
		Email:          email,
		NativeLanguage: nativeLanguage,
		QuizEnabled:    true,
		QuizFrequency:  quizFrequency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ActiveLanguages are the source languages whose phrases may be quizzed.
// An empty result means the user has not restricted languages.
func (u *User) ActiveLanguages() []string {
	out := make([]string, 0, len(u.TranslatorLanguages))
	seen := make(map[string]struct{}, len(u.TranslatorLanguages))
	for _, l := range u.TranslatorLanguages {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// QuizzesLanguage reports whether phrases in sourceLanguage may be quizzed.
func (u *User) QuizzesLanguage(sourceLanguage string) bool {
	active := u.ActiveLanguages()
	if len(active) == 0 {
		return true
	}
	for _, l := range active {
		if strings.EqualFold(l, sourceLanguage) {
			return true
		}
	}
	return false
}

// QuizThreshold is the number of searches between quizzes.
func (u *User) QuizThreshold(defaultFrequency int) int {
	if u.QuizFrequency > 0 {
		return u.QuizFrequency
	}
	return defaultFrequency
}

// IsQuestionTypeDisabled reports a per-user opt-out of an advanced archetype.
func (u *User) IsQuestionTypeDisabled(t QuestionType) bool {
	for _, d := range u.DisabledQuestionTypes {
		if d == t {
			return true
		}
	}
	return false
}
