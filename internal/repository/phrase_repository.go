package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/repository/models"
	"lingo-quiz/internal/util"
)

const phraseColumns = `id, text, normalized_text, source_language, quizzable, search_count, created_at, updated_at`

type sqlxPhraseRepository struct {
	db DBTX
}

func NewSQLXPhraseRepository(db DBTX) domain.PhraseRepository {
	return &sqlxPhraseRepository{db: db}
}

func toDomainPhrase(m *models.Phrase) *domain.Phrase {
	return &domain.Phrase{
		ID:             m.ID,
		Text:           m.Text,
		NormalizedText: m.NormalizedText,
		SourceLanguage: m.SourceLanguage,
		Quizzable:      m.Quizzable != 0,
		SearchCount:    m.SearchCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (r *sqlxPhraseRepository) GetByID(ctx context.Context, id string) (*domain.Phrase, error) {
	exec := GetExecutor(ctx, r.db)
	var m models.Phrase
	query := exec.Rebind(`SELECT ` + phraseColumns + ` FROM phrases WHERE id = ?`)
	if err := exec.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get phrase by id: %w", err)
	}
	return toDomainPhrase(&m), nil
}

func (r *sqlxPhraseRepository) GetByText(ctx context.Context, normalizedText, sourceLanguage string) (*domain.Phrase, error) {
	exec := GetExecutor(ctx, r.db)
	var m models.Phrase
	query := exec.Rebind(`SELECT ` + phraseColumns + ` FROM phrases WHERE normalized_text = ? AND source_language = ?`)
	if err := exec.GetContext(ctx, &m, query, normalizedText, sourceLanguage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get phrase by text: %w", err)
	}
	return toDomainPhrase(&m), nil
}

func (r *sqlxPhraseRepository) Create(ctx context.Context, phrase *domain.Phrase) error {
	if phrase.ID == "" {
		phrase.ID = util.NewULID()
	}
	if phrase.CreatedAt.IsZero() {
		phrase.CreatedAt = time.Now().UTC()
	}
	if phrase.UpdatedAt.IsZero() {
		phrase.UpdatedAt = phrase.CreatedAt
	}

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO phrases (` + phraseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query,
		phrase.ID, phrase.Text, phrase.NormalizedText, phrase.SourceLanguage,
		util.BoolToInt(phrase.Quizzable), phrase.SearchCount, phrase.CreatedAt, phrase.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to create phrase: %w", err)
	}
	return nil
}

func (r *sqlxPhraseRepository) IncrementSearchCount(ctx context.Context, id string) error {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE phrases SET search_count = search_count + 1, updated_at = ? WHERE id = ?`)
	if _, err := exec.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to increment phrase search count: %w", err)
	}
	return nil
}
