package service

import (
	"context"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"go.uber.org/zap"
)

// ProgressUpdater applies one answered attempt to its learning record.
type ProgressUpdater interface {
	// Apply joins the transaction already on ctx, if any.
	Apply(ctx context.Context, recordID string, correct bool, now time.Time) (*domain.LearningRecord, domain.ProgressChange, error)
}

type progressUpdater struct {
	records   domain.LearningRecordRepository
	txManager domain.TransactionManager
	stages    *domain.StageModel
	scheduler *domain.ReviewScheduler
}

func NewProgressUpdater(
	records domain.LearningRecordRepository,
	txManager domain.TransactionManager,
	stages *domain.StageModel,
	scheduler *domain.ReviewScheduler,
) ProgressUpdater {
	return &progressUpdater{
		records:   records,
		txManager: txManager,
		stages:    stages,
		scheduler: scheduler,
	}
}

func (u *progressUpdater) Apply(ctx context.Context, recordID string, correct bool, now time.Time) (*domain.LearningRecord, domain.ProgressChange, error) {
	var (
		updated domain.LearningRecord
		change  domain.ProgressChange
	)
	err := u.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := u.records.GetForUpdate(txCtx, recordID)
		if err != nil {
			return domain.NewPersistenceError("failed to load learning record", err)
		}
		if current == nil {
			return domain.NewNotFoundError("learning record not found").WithContext("learning_record_id", recordID)
		}

		updated, change, err = domain.ApplyOutcome(*current, correct, now, u.stages, u.scheduler)
		if err != nil {
			if domain.HasCode(err, domain.CodeInvalidTransition) {
				logger.Get().Error("Learning record transition rejected",
					zap.String("learning_record_id", recordID),
					zap.String("stage", string(current.Stage)),
					zap.Error(err))
				return domain.NewInternalError("learning record transition rejected", err)
			}
			return err
		}

		if err := u.records.Update(txCtx, &updated); err != nil {
			if domain.HasCode(err, domain.CodeNotFound) {
				return err
			}
			return domain.NewPersistenceError("failed to update learning record", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.ProgressChange{}, err
	}
	return &updated, change, nil
}
