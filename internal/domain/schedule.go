package domain

import "time"

// IntervalPolicy is the review interval table in days.
type IntervalPolicy struct {
	BasicCorrect          int
	BasicIncorrect        int
	IntermediateCorrect   int
	IntermediateIncorrect int
	AdvancedFirstCorrect  int
	AdvancedRepeatCorrect int
	AdvancedIncorrect     int
}

func DefaultIntervalPolicy() IntervalPolicy {
	return IntervalPolicy{
		BasicCorrect:          1,
		BasicIncorrect:        0,
		IntermediateCorrect:   3,
		IntermediateIncorrect: 1,
		AdvancedFirstCorrect:  7,
		AdvancedRepeatCorrect: 14,
		AdvancedIncorrect:     3,
	}
}

// ReviewOutcome is everything the scheduler needs about one finished attempt.
type ReviewOutcome struct {
	// Stage after any advancement caused by this attempt.
	Stage   Stage
	Correct bool
	// CorrectAtStage is times_correct at Stage after this attempt was counted.
	CorrectAtStage int
	// PromotedFrom is set when this attempt advanced the record.
	PromotedFrom Stage
}

type ReviewScheduler struct {
	stages *StageModel
	policy IntervalPolicy
}

func NewReviewScheduler(stages *StageModel, policy IntervalPolicy) *ReviewScheduler {
	return &ReviewScheduler{stages: stages, policy: policy}
}

// IntervalDays returns the review interval; ok is false when no review is scheduled.
func (s *ReviewScheduler) IntervalDays(o ReviewOutcome) (days int, ok bool) {
	if o.Stage == StageMastered || !o.Stage.IsValid() {
		return 0, false
	}

	// The first review after a promotion uses the graduating stage's success interval.
	if o.PromotedFrom != "" && s.stages.IsValidTransition(o.PromotedFrom, o.Stage) && o.PromotedFrom != o.Stage {
		return s.correctInterval(o.PromotedFrom, 1), true
	}

	if o.Correct {
		return s.correctInterval(o.Stage, o.CorrectAtStage), true
	}

	switch o.Stage {
	case StageBasic:
		return s.policy.BasicIncorrect, true
	case StageIntermediate:
		return s.policy.IntermediateIncorrect, true
	default:
		return s.policy.AdvancedIncorrect, true
	}
}

func (s *ReviewScheduler) correctInterval(stage Stage, correctAtStage int) int {
	switch stage {
	case StageBasic:
		return s.policy.BasicCorrect
	case StageIntermediate:
		return s.policy.IntermediateCorrect
	default:
		if correctAtStage > 1 {
			return s.policy.AdvancedRepeatCorrect
		}
		return s.policy.AdvancedFirstCorrect
	}
}

// NextReviewDate returns the calendar day (UTC midnight) of the next review, or nil.
func (s *ReviewScheduler) NextReviewDate(o ReviewOutcome, now time.Time) *time.Time {
	days, ok := s.IntervalDays(o)
	if !ok {
		return nil
	}
	due := StartOfDay(now).AddDate(0, 0, days)
	return &due
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
