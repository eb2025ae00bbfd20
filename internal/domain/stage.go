package domain

import "strings"

// Stage is a learner's mastery level for one phrase. Stages only move forward.
type Stage string

const (
	StageBasic        Stage = "basic"
	StageIntermediate Stage = "intermediate"
	StageAdvanced     Stage = "advanced"
	StageMastered     Stage = "mastered"
)

var stageOrder = []Stage{StageBasic, StageIntermediate, StageAdvanced, StageMastered}

// Stages returns every stage in progression order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

func (s Stage) rank() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) IsValid() bool {
	return s.rank() >= 0
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage converts user or storage input into a Stage.
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !stage.IsValid() {
		return "", NewInvalidStageError(s)
	}
	return stage, nil
}

// StagePolicy holds the number of correct answers required to leave each stage.
type StagePolicy struct {
	Thresholds map[Stage]int
}

func DefaultStagePolicy() StagePolicy {
	return StagePolicy{Thresholds: map[Stage]int{
		StageBasic:        2,
		StageIntermediate: 2,
		StageAdvanced:     3,
	}}
}

// StageModel is stateless: every method depends only on its arguments and the policy.
type StageModel struct {
	policy StagePolicy
}

func NewStageModel(policy StagePolicy) *StageModel {
	return &StageModel{policy: policy}
}

// IsValidTransition is true iff to equals from or is its immediate successor.
func (m *StageModel) IsValidTransition(from, to Stage) bool {
	fromRank, toRank := from.rank(), to.rank()
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank == fromRank || toRank == fromRank+1
}

// ValidateTransition is IsValidTransition reporting the reason as a DomainError.
func (m *StageModel) ValidateTransition(from, to Stage) error {
	if !from.IsValid() {
		return NewInvalidStageError(string(from))
	}
	if !to.IsValid() {
		return NewInvalidStageError(string(to))
	}
	if !m.IsValidTransition(from, to) {
		return NewInvalidTransitionError(from, to)
	}
	return nil
}

// NextStage returns the successor of s, or s when already mastered.
func (m *StageModel) NextStage(s Stage) Stage {
	r := s.rank()
	if r < 0 || r == len(stageOrder)-1 {
		return s
	}
	return stageOrder[r+1]
}

// AdvancementThreshold is the cumulative correct count at s needed to advance.
// Mastered never advances and reports 0.
func (m *StageModel) AdvancementThreshold(s Stage) int {
	if s == StageMastered || !s.IsValid() {
		return 0
	}
	return m.policy.Thresholds[s]
}

// ShouldAdvance reports whether correctAtStage meets the threshold for s.
func (m *StageModel) ShouldAdvance(s Stage, correctAtStage int) bool {
	threshold := m.AdvancementThreshold(s)
	return threshold > 0 && correctAtStage >= threshold
}
