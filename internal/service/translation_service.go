package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingo-quiz/internal/cache"
	"lingo-quiz/internal/config"
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TranslationService is the read-through memo of phrase translations:
// Redis, then the translations table, then the LLM.
type TranslationService interface {
	TranslationProvider
	// Translate with refresh set asks the LLM again and overwrites the stored record.
	Translate(ctx context.Context, phrase *domain.Phrase, targetLanguage string, refresh bool) (*domain.TranslationRecord, error)
}

type translationService struct {
	repo    domain.TranslationRepository
	cache   domain.Cache
	llm     domain.Completer
	retry   BackoffPolicy
	ttl     time.Duration
	model   string
	timeout time.Duration
	sfGroup singleflight.Group
}

func NewTranslationService(
	repo domain.TranslationRepository,
	cache domain.Cache,
	llm domain.Completer,
	retry BackoffPolicy,
	llmCfg config.LLMConfig,
	ttl time.Duration,
) TranslationService {
	if cache == nil {
		logger.Get().Warn("TranslationService initialized without a cache, every lookup reads the database")
	}
	return &translationService{
		repo:    repo,
		cache:   cache,
		llm:     llm,
		retry:   retry,
		ttl:     ttl,
		model:   llmCfg.Model,
		timeout: llmCfg.Timeout,
	}
}

// Bounds on LLM dictionary output so a stored record stays small.
const (
	maxTranslationEntries = 16
	maxEntryWordRunes     = 100
	maxEntryTagRunes      = 32
	maxEntryGlossRunes    = 160
)

type llmTranslation struct {
	Entries []domain.TranslationEntry `json:"entries"`
}

var translationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"entries": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"word":  map[string]any{"type": "string"},
					"tag":   map[string]any{"type": "string"},
					"gloss": map[string]any{"type": "string"},
				},
				"required":             []string{"word", "tag", "gloss"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"entries"},
	"additionalProperties": false,
}

const translationSystemPrompt = `You are a bilingual dictionary. Respond with ONLY a JSON object matching the given schema.
List the most common meanings first. word is the translation, tag is the part of speech or an empty string,
gloss is a short disambiguating note in the target language or an empty string.`

func (s *translationService) Translation(ctx context.Context, phrase *domain.Phrase, targetLanguage string) (*domain.TranslationRecord, error) {
	return s.Translate(ctx, phrase, targetLanguage, false)
}

// StoredTranslation returns the most recent stored translation of phrase in any
// other language, or nil. It never calls the LLM.
func (s *translationService) StoredTranslation(ctx context.Context, phrase *domain.Phrase) (*domain.TranslationRecord, error) {
	if phrase == nil {
		return nil, domain.NewNotFoundError("phrase not found")
	}
	records, err := s.repo.ListByPhrase(ctx, phrase.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list translations", err)
	}
	for _, rec := range records {
		if rec.TargetLanguage != phrase.SourceLanguage && len(rec.Words()) > 0 {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *translationService) Translate(ctx context.Context, phrase *domain.Phrase, targetLanguage string, refresh bool) (*domain.TranslationRecord, error) {
	if phrase == nil {
		return nil, domain.NewNotFoundError("phrase not found")
	}
	lang := strings.ToLower(targetLanguage)
	key := cache.TranslationKey(phrase.ID, lang)

	if !refresh {
		if rec := s.fromCache(ctx, key); rec != nil {
			return rec, nil
		}
	}

	flightKey := key
	if refresh {
		flightKey += ":refresh"
	}
	res, err, _ := s.sfGroup.Do(flightKey, func() (interface{}, error) {
		return s.load(ctx, phrase, lang, key, refresh)
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.(*domain.TranslationRecord)
	if !ok {
		return nil, domain.NewInternalError("unexpected translation result", fmt.Errorf("got %T", res))
	}
	return rec, nil
}

func (s *translationService) fromCache(ctx context.Context, key string) *domain.TranslationRecord {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("Translation cache read failed", zap.String("cache_key", key), zap.Error(err))
		}
		return nil
	}
	var rec domain.TranslationRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.Get().Warn("Discarding undecodable cached translation", zap.String("cache_key", key), zap.Error(err))
		return nil
	}
	return &rec
}

func (s *translationService) toCache(ctx context.Context, key string, rec *domain.TranslationRecord) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		logger.Get().Error("Failed to marshal translation for caching", zap.String("cache_key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
		logger.Get().Warn("Translation cache write failed", zap.String("cache_key", key), zap.Error(err))
	}
}

func (s *translationService) load(ctx context.Context, phrase *domain.Phrase, lang, key string, refresh bool) (*domain.TranslationRecord, error) {
	existing, err := s.repo.Get(ctx, phrase.ID, lang)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load translation", err)
	}
	if existing != nil && !refresh {
		s.toCache(ctx, key, existing)
		return existing, nil
	}

	entries, err := s.translate(ctx, phrase, lang)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &domain.TranslationRecord{
		PhraseID:       phrase.ID,
		TargetLanguage: lang,
		Entries:        entries,
		Model:          s.model,
		UpdatedAt:      now,
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err := s.repo.Replace(ctx, rec); err != nil {
			return nil, domain.NewPersistenceError("failed to replace translation", err)
		}
		if s.cache != nil {
			if err := s.cache.Delete(ctx, key); err != nil {
				logger.Get().Warn("Translation cache invalidation failed", zap.String("cache_key", key), zap.Error(err))
			}
		}
	} else {
		rec.ID = util.NewULID()
		rec.CreatedAt = now
		if err := s.repo.Create(ctx, rec); err != nil {
			if !errors.Is(err, domain.ErrDuplicate) {
				return nil, domain.NewPersistenceError("failed to store translation", err)
			}
			// Another instance stored it first; its record wins.
			winner, err := s.repo.Get(ctx, phrase.ID, lang)
			if err != nil || winner == nil {
				return nil, domain.NewPersistenceError("failed to reload translation", err)
			}
			rec = winner
		}
	}

	s.toCache(ctx, key, rec)
	return rec, nil
}

func (s *translationService) translate(ctx context.Context, phrase *domain.Phrase, lang string) ([]domain.TranslationEntry, error) {
	if s.llm == nil {
		return nil, domain.NewLLMServiceError(errors.New("no translator configured"))
	}
	req := domain.CompletionRequest{
		Name:   "translation",
		System: translationSystemPrompt,
		Prompt: fmt.Sprintf("Translate the %s phrase %q into %s.", phrase.SourceLanguage, phrase.Text, lang),
		Schema: translationSchema,
		// Dictionary output should not vary between calls.
		Temperature: 0,
		Timeout:     s.timeout,
	}

	var entries []domain.TranslationEntry
	err := s.retry.Do(ctx, "translate", func(ctx context.Context) error {
		raw, err := s.llm.Complete(ctx, req)
		if err != nil {
			return err
		}
		var resp llmTranslation
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			return domain.NewLLMError(domain.LLMInvalidResponse, fmt.Errorf("translation is not valid JSON: %w", err))
		}
		cleaned := make([]domain.TranslationEntry, 0, len(resp.Entries))
		for _, e := range resp.Entries {
			if len(cleaned) == maxTranslationEntries {
				break
			}
			word := domain.TruncateRunes(domain.NormalizeText(e.Word), maxEntryWordRunes)
			if word == "" {
				continue
			}
			cleaned = append(cleaned, domain.TranslationEntry{
				Word:  word,
				Tag:   domain.TruncateRunes(strings.TrimSpace(e.Tag), maxEntryTagRunes),
				Gloss: domain.TruncateRunes(strings.TrimSpace(e.Gloss), maxEntryGlossRunes),
			})
		}
		if len(cleaned) == 0 {
			return domain.NewLLMError(domain.LLMInvalidResponse, errors.New("translation has no entries"))
		}
		entries = cleaned
		return nil
	})
	if err != nil {
		logger.Get().Error("Translation failed",
			zap.String("phrase_id", phrase.ID),
			zap.String("target_language", lang),
			zap.Error(err))
		return nil, domain.NewLLMServiceError(err)
	}
	return entries, nil
}
