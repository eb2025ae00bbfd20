package service

import (
	"math/rand"
	"sync"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"go.uber.org/zap"
)

// QuestionTypeSelector picks an archetype for a stage.
type QuestionTypeSelector interface {
	Select(stage domain.Stage, user *domain.User) (domain.QuestionType, error)
}

type questionTypeSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewQuestionTypeSelector uses rnd when given; tests pass a seeded source.
func NewQuestionTypeSelector(rnd *rand.Rand) QuestionTypeSelector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &questionTypeSelector{rnd: rnd}
}

func (s *questionTypeSelector) Select(stage domain.Stage, user *domain.User) (domain.QuestionType, error) {
	if !stage.IsValid() || stage == domain.StageMastered {
		return "", domain.NewInvalidStageError(string(stage)).WithContext("reason", "stage has no question types")
	}

	candidates := domain.QuestionTypesForStage(stage)
	if stage == domain.StageAdvanced && user != nil {
		enabled := make([]domain.QuestionType, 0, len(candidates))
		for _, qt := range candidates {
			if !user.IsQuestionTypeDisabled(qt) {
				enabled = append(enabled, qt)
			}
		}
		if len(enabled) == 0 {
			logger.Get().Warn("All advanced question types are disabled, using the full set",
				zap.String("user_id", user.ID))
		} else {
			candidates = enabled
		}
	}

	s.mu.Lock()
	idx := s.rnd.Intn(len(candidates))
	s.mu.Unlock()
	return candidates[idx], nil
}
