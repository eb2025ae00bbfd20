package domain

import (
	"context"
	"time"
)

// TransactionManager runs fn in one database transaction. Repositories called with
// the ctx passed to fn take part in that transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePreferences(ctx context.Context, user *User) error
	// IncrementSearchCounter atomically adds one and returns the new value.
	IncrementSearchCounter(ctx context.Context, userID string) (int, error)
	ResetSearchCounter(ctx context.Context, userID string) error
}

type PhraseRepository interface {
	GetByID(ctx context.Context, id string) (*Phrase, error)
	GetByText(ctx context.Context, normalizedText, sourceLanguage string) (*Phrase, error)
	// Create returns ErrDuplicate when the (text, language) pair already exists.
	Create(ctx context.Context, phrase *Phrase) error
	IncrementSearchCount(ctx context.Context, id string) error
}

type TranslationRepository interface {
	Get(ctx context.Context, phraseID, targetLanguage string) (*TranslationRecord, error)
	// Create returns ErrDuplicate when the (phrase, language) pair already exists.
	Create(ctx context.Context, record *TranslationRecord) error
	// Replace overwrites entries and provenance of an existing record.
	Replace(ctx context.Context, record *TranslationRecord) error
	// ListByPhrase returns every stored language of a phrase, most recently updated first.
	ListByPhrase(ctx context.Context, phraseID string) ([]*TranslationRecord, error)
}

// DueQuery selects quiz-eligible records for one user.
type DueQuery struct {
	UserID string
	// Languages restricts phrase source languages; empty means any.
	Languages        []string
	Today            time.Time
	ExcludePhraseIDs []string
	Limit            int
}

type LearningRecordRepository interface {
	GetByID(ctx context.Context, id string) (*LearningRecord, error)
	GetByUserAndPhrase(ctx context.Context, userID, phraseID string) (*LearningRecord, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*LearningRecord, error)
	// Create returns ErrDuplicate when the user already has a record for the phrase.
	Create(ctx context.Context, record *LearningRecord) error
	Update(ctx context.Context, record *LearningRecord) error
	// FindDue never returns mastered records. Never-reviewed records are due; ordering is
	// most overdue first, then id.
	FindDue(ctx context.Context, q DueQuery) ([]*LearningRecord, error)
	ListByUser(ctx context.Context, userID string, stage Stage, page Page) ([]*LearningRecord, int, error)
	CountByStage(ctx context.Context, userID string) ([]StageCount, error)
}

type QuizAttemptRepository interface {
	Create(ctx context.Context, attempt *QuizAttempt) error
	GetByID(ctx context.Context, id string) (*QuizAttempt, error)
	// GetPending returns the generated attempt of a learning record, or nil.
	// At most one exists; Create returns ErrDuplicate for a second one.
	GetPending(ctx context.Context, learningRecordID string) (*QuizAttempt, error)
	// MarkAnswered returns ErrAttemptNotPending unless the attempt is still generated.
	MarkAnswered(ctx context.Context, attempt *QuizAttempt) error
	// MarkSkipped returns ErrAttemptNotPending unless the attempt is still generated.
	MarkSkipped(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID string, page Page) ([]*QuizAttempt, int, error)
}
