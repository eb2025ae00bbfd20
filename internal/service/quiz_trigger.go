package service

import (
	"context"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"go.uber.org/zap"
)

// dueCandidates is how many due records are read so a stray mastered row can be skipped.
const dueCandidates = 5

// TriggerOptions adjusts a trigger evaluation.
type TriggerOptions struct {
	// IgnoreThreshold re-offers a question right after a skip.
	IgnoreThreshold  bool
	ExcludePhraseIDs []string
}

// QuizTrigger decides whether a quiz fires now and for which record.
type QuizTrigger interface {
	Evaluate(ctx context.Context, user *domain.User, opts TriggerOptions) (*domain.TriggerResult, error)
}

type quizTrigger struct {
	records          domain.LearningRecordRepository
	defaultFrequency int
	now              func() time.Time
}

func NewQuizTrigger(records domain.LearningRecordRepository, defaultFrequency int) QuizTrigger {
	return &quizTrigger{
		records:          records,
		defaultFrequency: defaultFrequency,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks, in order: quizzing enabled, search threshold reached, something due.
// A lookup failure is returned as an error and never as a no-trigger result.
func (t *quizTrigger) Evaluate(ctx context.Context, user *domain.User, opts TriggerOptions) (*domain.TriggerResult, error) {
	if user == nil {
		return nil, domain.NewNotFoundError("user not found")
	}
	if !user.QuizEnabled {
		return domain.NoTrigger(domain.TriggerDisabled), nil
	}
	if !opts.IgnoreThreshold && user.SearchesSinceQuiz < user.QuizThreshold(t.defaultFrequency) {
		return domain.NoTrigger(domain.TriggerThresholdNotReached), nil
	}

	today := t.now()
	due, err := t.records.FindDue(ctx, domain.DueQuery{
		UserID:           user.ID,
		Languages:        user.ActiveLanguages(),
		Today:            today,
		ExcludePhraseIDs: opts.ExcludePhraseIDs,
		Limit:            dueCandidates,
	})
	if err != nil {
		return nil, domain.NewPersistenceError("failed to look up due phrases", err)
	}

	for _, rec := range due {
		if !rec.IsDue(today) {
			logger.Get().Warn("Store returned a record that is not due",
				zap.String("user_id", user.ID),
				zap.String("learning_record_id", rec.ID),
				zap.String("stage", string(rec.Stage)))
			continue
		}
		return &domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: rec}, nil
	}
	return domain.NoTrigger(domain.TriggerNoPhrasesDue), nil
}
