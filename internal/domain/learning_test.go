package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModels() (*StageModel, *ReviewScheduler) {
	stages := NewStageModel(DefaultStagePolicy())
	return stages, NewReviewScheduler(stages, DefaultIntervalPolicy())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewLearningRecord(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	r := NewLearningRecord("rec-1", "user-1", "phrase-geben", "", now)

	assert.Equal(t, StageBasic, r.Stage)
	assert.Nil(t, r.NextReviewDate)
	assert.Zero(t, r.TimesReviewed)
	assert.Zero(t, r.TimesCorrect)
	assert.Zero(t, r.TimesIncorrect)
	assert.Equal(t, now, r.FirstSeenAt)
	assert.True(t, r.IsDue(now), "a record that was never quizzed is due")
}

func TestApplyOutcome_BasicAdvancesOnSecondCorrect(t *testing.T) {
	stages, scheduler := newTestModels()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	r := *NewLearningRecord("rec-1", "user-1", "phrase-1", "", now)

	first, change, err := ApplyOutcome(r, true, now, stages, scheduler)
	require.NoError(t, err)
	assert.False(t, change.Advanced)
	assert.Equal(t, StageBasic, first.Stage)
	assert.Equal(t, 1, first.TimesCorrect)
	assert.Equal(t, day(2026, 4, 2), *first.NextReviewDate)

	second, change, err := ApplyOutcome(first, true, now.AddDate(0, 0, 1), stages, scheduler)
	require.NoError(t, err)
	assert.True(t, change.Advanced)
	assert.Equal(t, StageBasic, change.PreviousStage)
	assert.Equal(t, StageIntermediate, second.Stage)
	assert.Zero(t, second.TimesCorrect)
	assert.Zero(t, second.TimesReviewed)
	assert.Zero(t, second.TimesIncorrect)
	assert.Equal(t, day(2026, 4, 3), *second.NextReviewDate, "promotion schedules the next review tomorrow")
	require.NotNil(t, second.LastReviewedAt)
}

func TestApplyOutcome_IncorrectNeverRegresses(t *testing.T) {
	stages, scheduler := newTestModels()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	r := LearningRecord{ID: "rec-1", Stage: StageIntermediate, TimesReviewed: 1, TimesCorrect: 1}

	updated, change, err := ApplyOutcome(r, false, now, stages, scheduler)
	require.NoError(t, err)
	assert.False(t, change.Advanced)
	assert.Equal(t, StageIntermediate, updated.Stage)
	assert.Equal(t, 1, updated.TimesIncorrect)
	assert.Equal(t, 2, updated.TimesReviewed)
	assert.Equal(t, 1, updated.TimesCorrect)
	assert.Equal(t, day(2026, 4, 2), *updated.NextReviewDate)
}

func TestApplyOutcome_DoesNotMutateInput(t *testing.T) {
	stages, scheduler := newTestModels()
	r := LearningRecord{ID: "rec-1", Stage: StageBasic, TimesCorrect: 1}

	_, _, err := ApplyOutcome(r, true, time.Now(), stages, scheduler)
	require.NoError(t, err)
	assert.Equal(t, StageBasic, r.Stage)
	assert.Equal(t, 1, r.TimesCorrect)
}

func TestApplyOutcome_RejectsMastered(t *testing.T) {
	stages, scheduler := newTestModels()
	r := LearningRecord{ID: "rec-1", Stage: StageMastered}

	_, _, err := ApplyOutcome(r, true, time.Now(), stages, scheduler)
	assert.True(t, HasCode(err, CodeInvalidStage))
}

func TestApplyOutcome_AdvancedToMasteredClearsDate(t *testing.T) {
	stages, scheduler := newTestModels()
	r := LearningRecord{ID: "rec-1", Stage: StageAdvanced, TimesCorrect: 2, TimesReviewed: 2}

	updated, change, err := ApplyOutcome(r, true, time.Now(), stages, scheduler)
	require.NoError(t, err)
	assert.Equal(t, StageMastered, updated.Stage)
	assert.True(t, change.Advanced)
	assert.Nil(t, updated.NextReviewDate)
}

func TestApplyOutcome_StagesAreMonotonic(t *testing.T) {
	stages, scheduler := newTestModels()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	r := *NewLearningRecord("rec-1", "user-1", "phrase-1", "", now)

	answers := []bool{true, false, false, true, true, false, true, false, true, true, false, true, true, true}
	previous := r.Stage
	for i, correct := range answers {
		var err error
		r, _, err = ApplyOutcome(r, correct, now.AddDate(0, 0, i), stages, scheduler)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.Stage.rank(), previous.rank(), "answer %d regressed %s -> %s", i, previous, r.Stage)
		previous = r.Stage
		if r.Stage == StageMastered {
			break
		}
	}
	assert.Equal(t, StageMastered, r.Stage)
}

func TestLearningRecord_IsDue(t *testing.T) {
	today := time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC)
	yesterday := day(2026, 5, 4)
	tomorrow := day(2026, 5, 6)
	todayDate := day(2026, 5, 5)

	assert.True(t, (&LearningRecord{Stage: StageBasic, NextReviewDate: &yesterday}).IsDue(today))
	assert.True(t, (&LearningRecord{Stage: StageBasic, NextReviewDate: &todayDate}).IsDue(today))
	assert.False(t, (&LearningRecord{Stage: StageBasic, NextReviewDate: &tomorrow}).IsDue(today))
	assert.False(t, (&LearningRecord{Stage: StageMastered, NextReviewDate: &yesterday}).IsDue(today))
	assert.False(t, (&LearningRecord{Stage: StageMastered}).IsDue(today))
}

func TestUser_QuizzesLanguage(t *testing.T) {
	u := &User{}
	assert.True(t, u.QuizzesLanguage("de"))

	u.TranslatorLanguages = []string{"de", "fr"}
	assert.True(t, u.QuizzesLanguage("DE"))
	assert.False(t, u.QuizzesLanguage("es"))
}

func TestRecordEligibility(t *testing.T) {
	now := time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC)
	nextWeek := day(2026, 5, 12)

	user := &User{QuizEnabled: true, TranslatorLanguages: []string{"de"}}
	due := &LearningRecord{Stage: StageBasic}
	assert.Equal(t, TriggerReady, RecordEligibility(user, due, "de", now))
	assert.Equal(t, TriggerNoPhrasesDue, RecordEligibility(user, due, "fr", now))
	assert.Equal(t, TriggerNoPhrasesDue, RecordEligibility(user, &LearningRecord{Stage: StageBasic, NextReviewDate: &nextWeek}, "de", now))
	assert.Equal(t, TriggerNoPhrasesDue, RecordEligibility(user, &LearningRecord{Stage: StageMastered}, "de", now))

	// searches do not matter for an explicit request
	user.SearchesSinceQuiz = 0
	assert.Equal(t, TriggerReady, RecordEligibility(user, due, "de", now))

	disabled := &User{QuizEnabled: false}
	assert.Equal(t, TriggerDisabled, RecordEligibility(disabled, due, "de", now))
}
