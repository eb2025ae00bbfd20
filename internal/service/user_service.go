package service

import (
	"context"
	"strings"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/logger"

	"go.uber.org/zap"
)

const (
	minQuizFrequency = 1
	maxQuizFrequency = 100
)

// UserService defines the interface for user-related operations.
type UserService interface {
	GetUserProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error)
	UpdatePreferences(ctx context.Context, userID string, req dto.UpdatePreferencesRequest) (*dto.UserProfileResponse, error)
	GetProgress(ctx context.Context, userID string, stage string, pagination dto.Pagination) (*dto.ProgressResponse, error)
	GetUserQuizAttempts(ctx context.Context, userID string, pagination dto.Pagination) (*dto.QuizAttemptsResponse, error)
}

type userServiceImpl struct {
	userRepo    domain.UserRepository
	recordRepo  domain.LearningRecordRepository
	attemptRepo domain.QuizAttemptRepository
	now         func() time.Time
}

// NewUserService creates a new instance of UserService.
func NewUserService(
	userRepo domain.UserRepository,
	recordRepo domain.LearningRecordRepository,
	attemptRepo domain.QuizAttemptRepository,
) UserService {
	return &userServiceImpl{
		userRepo:    userRepo,
		recordRepo:  recordRepo,
		attemptRepo: attemptRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *userServiceImpl) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user not found").WithContext("user_id", userID)
	}
	return user, nil
}

// GetUserProfile retrieves a user's profile information.
func (s *userServiceImpl) GetUserProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(user), nil
}

// UpdatePreferences applies the non-nil fields of req.
func (s *userServiceImpl) UpdatePreferences(ctx context.Context, userID string, req dto.UpdatePreferencesRequest) (*dto.UserProfileResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var verrs domain.ValidationErrors
	if req.NativeLanguage != nil {
		lang := strings.ToLower(strings.TrimSpace(*req.NativeLanguage))
		if lang == "" {
			verrs = append(verrs, domain.NewMissingFieldError("native_language"))
		}
		user.NativeLanguage = lang
	}
	if req.TranslatorLanguages != nil {
		langs := make([]string, 0, len(req.TranslatorLanguages))
		for _, l := range req.TranslatorLanguages {
			if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
				langs = append(langs, l)
			}
		}
		user.TranslatorLanguages = langs
		// dedupe
		user.TranslatorLanguages = user.ActiveLanguages()
	}
	if req.QuizEnabled != nil {
		user.QuizEnabled = *req.QuizEnabled
	}
	if req.QuizFrequency != nil {
		if *req.QuizFrequency < minQuizFrequency || *req.QuizFrequency > maxQuizFrequency {
			verrs = append(verrs, domain.NewOutOfRangeError("quiz_frequency", *req.QuizFrequency, minQuizFrequency, maxQuizFrequency))
		}
		user.QuizFrequency = *req.QuizFrequency
	}
	if req.DisabledQuestionTypes != nil {
		disabled := make([]domain.QuestionType, 0, len(req.DisabledQuestionTypes))
		for _, raw := range req.DisabledQuestionTypes {
			qt, err := domain.ParseQuestionType(raw)
			if err != nil || !isAdvancedType(qt) {
				verrs = append(verrs, domain.NewInvalidFormatError("disabled_question_types", raw))
				continue
			}
			disabled = append(disabled, qt)
		}
		user.DisabledQuestionTypes = disabled
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.UpdatePreferences(ctx, user); err != nil {
		if domain.HasCode(err, domain.CodeNotFound) {
			return nil, err
		}
		return nil, domain.NewPersistenceError("failed to update preferences", err)
	}
	logger.Get().Info("User preferences updated",
		zap.String("user_id", user.ID),
		zap.Bool("quiz_enabled", user.QuizEnabled),
		zap.Int("quiz_frequency", user.QuizFrequency))
	return toProfileResponse(user), nil
}

func isAdvancedType(qt domain.QuestionType) bool {
	for _, t := range domain.AdvancedQuestionTypes() {
		if t == qt {
			return true
		}
	}
	return false
}

// GetProgress lists the user's learning records with per-stage totals. An empty stage lists all.
func (s *userServiceImpl) GetProgress(ctx context.Context, userID string, stage string, pagination dto.Pagination) (*dto.ProgressResponse, error) {
	var filter domain.Stage
	if stage != "" {
		parsed, err := domain.ParseStage(stage)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	counts, err := s.recordRepo.CountByStage(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to count learning records", err)
	}
	records, total, err := s.recordRepo.ListByUser(ctx, userID, filter, domain.Page{Limit: pagination.Limit, Offset: pagination.Offset})
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list learning records", err)
	}

	byStage := make(map[domain.Stage]int, len(counts))
	for _, c := range counts {
		byStage[c.Stage] = c.Count
	}
	resp := &dto.ProgressResponse{
		Stages:         make([]dto.StageCountResponse, 0, len(domain.Stages())),
		Records:        make([]dto.LearningRecordItem, 0, len(records)),
		PaginationInfo: dto.NewPaginationInfo(total, pagination),
	}
	for _, st := range domain.Stages() {
		resp.Stages = append(resp.Stages, dto.StageCountResponse{Stage: string(st), Count: byStage[st]})
	}
	for _, r := range records {
		resp.Records = append(resp.Records, dto.LearningRecordItem{
			ID:             r.ID,
			PhraseID:       r.PhraseID,
			Stage:          string(r.Stage),
			TimesReviewed:  r.TimesReviewed,
			TimesCorrect:   r.TimesCorrect,
			TimesIncorrect: r.TimesIncorrect,
			NextReviewDate: r.NextReviewDate,
			LastReviewedAt: r.LastReviewedAt,
			FirstSeenAt:    r.FirstSeenAt,
		})
	}
	return resp, nil
}

// GetUserQuizAttempts retrieves a user's quiz attempt history, newest first.
func (s *userServiceImpl) GetUserQuizAttempts(ctx context.Context, userID string, pagination dto.Pagination) (*dto.QuizAttemptsResponse, error) {
	attempts, total, err := s.attemptRepo.ListByUser(ctx, userID, domain.Page{Limit: pagination.Limit, Offset: pagination.Offset})
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list quiz attempts", err)
	}

	items := make([]dto.QuizAttemptItem, len(attempts))
	for i, a := range attempts {
		items[i] = dto.QuizAttemptItem{
			AttemptID:        a.ID,
			PhraseID:         a.PhraseID,
			QuestionType:     string(a.Payload.Type),
			QuestionText:     a.Payload.QuestionText,
			Status:           string(a.Status),
			IsCorrect:        a.IsCorrect,
			Explanation:      a.Explanation,
			EvaluationMethod: a.EvaluationMethod,
			Fallback:         a.Payload.Fallback,
			CreatedAt:        a.CreatedAt,
			AnsweredAt:       a.AnsweredAt,
		}
		if a.SubmittedAnswer != nil {
			items[i].SubmittedAnswer = *a.SubmittedAnswer
		}
	}

	return &dto.QuizAttemptsResponse{
		Attempts:       items,
		PaginationInfo: dto.NewPaginationInfo(total, pagination),
	}, nil
}

func toProfileResponse(user *domain.User) *dto.UserProfileResponse {
	languages := user.ActiveLanguages()
	disabled := make([]string, len(user.DisabledQuestionTypes))
	for i, t := range user.DisabledQuestionTypes {
		disabled[i] = string(t)
	}
	return &dto.UserProfileResponse{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		ProfilePictureURL: user.ProfilePictureURL,
		SearchesSinceQuiz: user.SearchesSinceQuiz,
		Preferences: dto.PreferencesResponse{
			NativeLanguage:        user.NativeLanguage,
			TranslatorLanguages:   languages,
			QuizEnabled:           user.QuizEnabled,
			QuizFrequency:         user.QuizFrequency,
			DisabledQuestionTypes: disabled,
		},
	}
}
