package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/util"

	"go.uber.org/zap"
)

// SearchService translates a phrase for a user and feeds the search into the quiz engine.
type SearchService interface {
	Search(ctx context.Context, userID string, req dto.SearchRequest) (*dto.SearchResponse, error)
}

type searchService struct {
	users                 domain.UserRepository
	phrases               domain.PhraseRepository
	translations          TranslationService
	quiz                  QuizService
	defaultNativeLanguage string
	now                   func() time.Time
}

func NewSearchService(
	users domain.UserRepository,
	phrases domain.PhraseRepository,
	translations TranslationService,
	quiz QuizService,
	defaultNativeLanguage string,
) SearchService {
	return &searchService{
		users:                 users,
		phrases:               phrases,
		translations:          translations,
		quiz:                  quiz,
		defaultNativeLanguage: defaultNativeLanguage,
		now:                   func() time.Time { return time.Now().UTC() },
	}
}

func (s *searchService) Search(ctx context.Context, userID string, req dto.SearchRequest) (*dto.SearchResponse, error) {
	text := domain.NormalizeText(req.Text)
	if text == "" {
		return nil, domain.NewMissingFieldError("text")
	}
	sourceLanguage := strings.ToLower(strings.TrimSpace(req.SourceLanguage))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user not found").WithContext("user_id", userID)
	}

	targetLanguage := strings.ToLower(strings.TrimSpace(req.TargetLanguage))
	if targetLanguage == "" {
		targetLanguage = user.NativeLanguage
	}
	if targetLanguage == "" {
		targetLanguage = s.defaultNativeLanguage
	}

	phrase, err := s.resolvePhrase(ctx, text, sourceLanguage)
	if err != nil {
		return nil, err
	}

	translation, err := s.translations.Translate(ctx, phrase, targetLanguage, req.Refresh)
	if err != nil {
		return nil, err
	}

	resp := &dto.SearchResponse{
		PhraseID:       phrase.ID,
		Text:           phrase.Text,
		SourceLanguage: phrase.SourceLanguage,
		TargetLanguage: targetLanguage,
		Quizzable:      phrase.Quizzable,
		Entries:        make([]dto.TranslationEntryResponse, 0, len(translation.Entries)),
	}
	for _, e := range translation.Entries {
		resp.Entries = append(resp.Entries, dto.TranslationEntryResponse{Word: e.Word, Tag: e.Tag, Gloss: e.Gloss})
	}

	signal, err := s.quiz.OnSearch(ctx, userID, phrase.ID, domain.NormalizeText(req.ContextSentence))
	if err != nil {
		logger.Get().Error("Quiz engine failed on search, returning translation only",
			zap.String("user_id", userID),
			zap.String("phrase_id", phrase.ID),
			zap.Error(err))
	} else {
		resp.Quiz = signal
	}
	return resp, nil
}

func (s *searchService) resolvePhrase(ctx context.Context, text, sourceLanguage string) (*domain.Phrase, error) {
	normalized := domain.FoldText(text)
	phrase, err := s.phrases.GetByText(ctx, normalized, sourceLanguage)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load phrase", err)
	}
	if phrase != nil {
		if err := s.phrases.IncrementSearchCount(ctx, phrase.ID); err != nil {
			logger.Get().Warn("Failed to increment phrase search count",
				zap.String("phrase_id", phrase.ID),
				zap.Error(err))
		} else {
			phrase.SearchCount++
		}
		return phrase, nil
	}

	phrase = domain.NewPhrase(util.NewULID(), text, sourceLanguage, s.now())
	if err := s.phrases.Create(ctx, phrase); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewPersistenceError("failed to create phrase", err)
		}
		winner, err := s.phrases.GetByText(ctx, normalized, sourceLanguage)
		if err != nil || winner == nil {
			return nil, domain.NewPersistenceError("failed to reload phrase", err)
		}
		return winner, nil
	}
	return phrase, nil
}
