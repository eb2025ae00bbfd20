package domain

import "time"

// LearningRecord is one user's progress on one phrase.
type LearningRecord struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	PhraseID        string     `json:"phrase_id"`
	Stage           Stage      `json:"stage"`
	TimesReviewed   int        `json:"times_reviewed"`
	TimesCorrect    int        `json:"times_correct"`
	TimesIncorrect  int        `json:"times_incorrect"`
	NextReviewDate  *time.Time `json:"next_review_date,omitempty"`
	LastReviewedAt  *time.Time `json:"last_reviewed_at,omitempty"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	ContextSentence string     `json:"context_sentence,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewLearningRecord builds the state of a phrase the user has just seen for the first time.
func NewLearningRecord(id, userID, phraseID, contextSentence string, now time.Time) *LearningRecord {
	return &LearningRecord{
		ID:              id,
		UserID:          userID,
		PhraseID:        phraseID,
		Stage:           StageBasic,
		FirstSeenAt:     now,
		ContextSentence: contextSentence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsDue reports whether the record is eligible for a quiz on the given day.
// A record that was never reviewed has no date and is due immediately.
func (r *LearningRecord) IsDue(now time.Time) bool {
	if r.Stage == StageMastered {
		return false
	}
	if r.NextReviewDate == nil {
		return true
	}
	return !r.NextReviewDate.After(StartOfDay(now))
}

// ProgressChange summarizes what one answer did to a record.
type ProgressChange struct {
	PreviousStage  Stage      `json:"previous_stage"`
	NewStage       Stage      `json:"new_stage"`
	Advanced       bool       `json:"advanced"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
}

// ApplyOutcome returns the record as it must be after one answered attempt.
// The input record is not modified.
func ApplyOutcome(record LearningRecord, correct bool, now time.Time, stages *StageModel, scheduler *ReviewScheduler) (LearningRecord, ProgressChange, error) {
	if !record.Stage.IsValid() {
		return record, ProgressChange{}, NewInvalidStageError(string(record.Stage))
	}
	if record.Stage == StageMastered {
		return record, ProgressChange{}, NewInvalidStageError(string(record.Stage)).
			WithContext("reason", "mastered records are not reviewed")
	}

	updated := record
	previous := record.Stage

	updated.TimesReviewed++
	if correct {
		updated.TimesCorrect++
	} else {
		updated.TimesIncorrect++
	}

	outcome := ReviewOutcome{Correct: correct}
	if correct && stages.ShouldAdvance(updated.Stage, updated.TimesCorrect) {
		next := stages.NextStage(updated.Stage)
		if err := stages.ValidateTransition(previous, next); err != nil {
			return record, ProgressChange{}, err
		}
		updated.Stage = next
		updated.TimesReviewed = 0
		updated.TimesCorrect = 0
		updated.TimesIncorrect = 0
		outcome.PromotedFrom = previous
	}
	if err := stages.ValidateTransition(previous, updated.Stage); err != nil {
		return record, ProgressChange{}, err
	}

	outcome.Stage = updated.Stage
	outcome.CorrectAtStage = updated.TimesCorrect
	updated.NextReviewDate = scheduler.NextReviewDate(outcome, now)

	reviewedAt := now
	updated.LastReviewedAt = &reviewedAt
	updated.UpdatedAt = now

	return updated, ProgressChange{
		PreviousStage:  previous,
		NewStage:       updated.Stage,
		Advanced:       updated.Stage != previous,
		NextReviewDate: updated.NextReviewDate,
	}, nil
}

// StageCount is the number of records a user has at one stage.
type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}
