package service

import (
	"context"
	"errors"
	"testing"

	"lingo-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProgressUpdater(records domain.LearningRecordRepository, tx domain.TransactionManager) ProgressUpdater {
	stages := domain.NewStageModel(domain.DefaultStagePolicy())
	return NewProgressUpdater(records, tx, stages, domain.NewReviewScheduler(stages, domain.DefaultIntervalPolicy()))
}

func TestProgressUpdater_Apply_BasicPromotion(t *testing.T) {
	records := new(MockLearningRecordRepository)
	tx := &passThroughTxManager{}
	rec := dueRecord("rec-1", nil)
	rec.TimesReviewed = 1
	rec.TimesCorrect = 1

	records.On("GetForUpdate", mock.Anything, "rec-1").Return(rec, nil)
	records.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.LearningRecord) bool {
		return r.Stage == domain.StageIntermediate && r.TimesCorrect == 0 && r.TimesReviewed == 0
	})).Return(nil)

	updated, change, err := newTestProgressUpdater(records, tx).Apply(context.Background(), "rec-1", true, fixedNow())

	require.NoError(t, err)
	assert.Equal(t, domain.StageIntermediate, updated.Stage)
	assert.Equal(t, domain.StageBasic, change.PreviousStage)
	assert.Equal(t, domain.StageIntermediate, change.NewStage)
	assert.True(t, change.Advanced)
	require.NotNil(t, change.NextReviewDate)
	assert.Equal(t, domain.StartOfDay(fixedNow()).AddDate(0, 0, 1), *change.NextReviewDate)
	assert.Equal(t, 1, tx.calls)
	// The stored record was not mutated in place.
	assert.Equal(t, domain.StageBasic, rec.Stage)
	records.AssertExpectations(t)
}

func TestProgressUpdater_Apply_AdvancedToMastered(t *testing.T) {
	records := new(MockLearningRecordRepository)
	rec := dueRecord("rec-1", nil)
	rec.Stage = domain.StageAdvanced
	rec.TimesReviewed = 4
	rec.TimesCorrect = 2
	rec.TimesIncorrect = 2

	records.On("GetForUpdate", mock.Anything, "rec-1").Return(rec, nil)
	records.On("Update", mock.Anything, mock.Anything).Return(nil)

	updated, change, err := newTestProgressUpdater(records, &passThroughTxManager{}).Apply(context.Background(), "rec-1", true, fixedNow())

	require.NoError(t, err)
	assert.Equal(t, domain.StageMastered, updated.Stage)
	assert.Nil(t, updated.NextReviewDate)
	assert.Nil(t, change.NextReviewDate)
	assert.True(t, change.Advanced)
}

func TestProgressUpdater_Apply_IncorrectStaysAtStage(t *testing.T) {
	records := new(MockLearningRecordRepository)
	rec := dueRecord("rec-1", nil)
	rec.Stage = domain.StageIntermediate
	rec.TimesCorrect = 1

	records.On("GetForUpdate", mock.Anything, "rec-1").Return(rec, nil)
	records.On("Update", mock.Anything, mock.Anything).Return(nil)

	updated, change, err := newTestProgressUpdater(records, &passThroughTxManager{}).Apply(context.Background(), "rec-1", false, fixedNow())

	require.NoError(t, err)
	assert.False(t, change.Advanced)
	assert.Equal(t, domain.StageIntermediate, updated.Stage)
	assert.Equal(t, 1, updated.TimesIncorrect)
	assert.Equal(t, 1, updated.TimesReviewed)
	assert.Equal(t, domain.StartOfDay(fixedNow()).AddDate(0, 0, 1), *updated.NextReviewDate)
	require.NotNil(t, updated.LastReviewedAt)
}

func TestProgressUpdater_Apply_Errors(t *testing.T) {
	t.Run("mastered record", func(t *testing.T) {
		records := new(MockLearningRecordRepository)
		rec := dueRecord("rec-1", nil)
		rec.Stage = domain.StageMastered
		records.On("GetForUpdate", mock.Anything, "rec-1").Return(rec, nil)

		_, _, err := newTestProgressUpdater(records, &passThroughTxManager{}).Apply(context.Background(), "rec-1", true, fixedNow())

		assert.True(t, domain.HasCode(err, domain.CodeInvalidStage))
		records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("missing record", func(t *testing.T) {
		records := new(MockLearningRecordRepository)
		records.On("GetForUpdate", mock.Anything, "rec-x").Return(nil, nil)

		_, _, err := newTestProgressUpdater(records, &passThroughTxManager{}).Apply(context.Background(), "rec-x", true, fixedNow())

		assert.True(t, domain.HasCode(err, domain.CodeNotFound))
	})

	t.Run("lock failure", func(t *testing.T) {
		records := new(MockLearningRecordRepository)
		records.On("GetForUpdate", mock.Anything, "rec-1").Return(nil, errors.New("deadlock"))

		_, _, err := newTestProgressUpdater(records, &passThroughTxManager{}).Apply(context.Background(), "rec-1", true, fixedNow())

		assert.True(t, domain.HasCode(err, domain.CodePersistence))
	})

	t.Run("update failure", func(t *testing.T) {
		records := new(MockLearningRecordRepository)
		records.On("GetForUpdate", mock.Anything, "rec-1").Return(dueRecord("rec-1", nil), nil)
		records.On("Update", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, _, err := newTestProgressUpdater(records, &passThroughTxManager{}).Apply(context.Background(), "rec-1", false, fixedNow())

		assert.True(t, domain.HasCode(err, domain.CodePersistence))
	})
}
