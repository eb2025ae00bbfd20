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

const translationColumns = `id, phrase_id, target_language, entries, model, created_at, updated_at`

type sqlxTranslationRepository struct {
	db DBTX
}

func NewSQLXTranslationRepository(db DBTX) domain.TranslationRepository {
	return &sqlxTranslationRepository{db: db}
}

func toDomainTranslation(m *models.Translation) *domain.TranslationRecord {
	return &domain.TranslationRecord{
		ID:             m.ID,
		PhraseID:       m.PhraseID,
		TargetLanguage: m.TargetLanguage,
		Entries:        []domain.TranslationEntry(m.Entries),
		Model:          m.Model.String,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (r *sqlxTranslationRepository) Get(ctx context.Context, phraseID, targetLanguage string) (*domain.TranslationRecord, error) {
	exec := GetExecutor(ctx, r.db)
	var m models.Translation
	query := exec.Rebind(`SELECT ` + translationColumns + ` FROM translations WHERE phrase_id = ? AND target_language = ?`)
	if err := exec.GetContext(ctx, &m, query, phraseID, targetLanguage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get translation: %w", err)
	}
	return toDomainTranslation(&m), nil
}

func (r *sqlxTranslationRepository) ListByPhrase(ctx context.Context, phraseID string) ([]*domain.TranslationRecord, error) {
	exec := GetExecutor(ctx, r.db)
	var rows []models.Translation
	query := exec.Rebind(`SELECT ` + translationColumns + ` FROM translations WHERE phrase_id = ?
		ORDER BY updated_at DESC, id DESC`)
	if err := exec.SelectContext(ctx, &rows, query, phraseID); err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	records := make([]*domain.TranslationRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toDomainTranslation(&rows[i]))
	}
	return records, nil
}

func (r *sqlxTranslationRepository) Create(ctx context.Context, record *domain.TranslationRecord) error {
	if record.ID == "" {
		record.ID = util.NewULID()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO translations (` + translationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query,
		record.ID, record.PhraseID, record.TargetLanguage, models.TranslationEntries(record.Entries),
		util.StringToNullString(record.Model), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to create translation: %w", err)
	}
	return nil
}

func (r *sqlxTranslationRepository) Replace(ctx context.Context, record *domain.TranslationRecord) error {
	record.UpdatedAt = time.Now().UTC()
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE translations SET entries = ?, model = ?, updated_at = ?
		WHERE phrase_id = ? AND target_language = ?`)
	res, err := exec.ExecContext(ctx, query,
		models.TranslationEntries(record.Entries), util.StringToNullString(record.Model), record.UpdatedAt,
		record.PhraseID, record.TargetLanguage)
	if err != nil {
		return fmt.Errorf("failed to replace translation: %w", err)
	}
	if ok, err := requireOneRow(res); err != nil {
		return fmt.Errorf("failed to replace translation: %w", err)
	} else if !ok {
		return domain.NewNotFoundError("translation not found").
			WithContext("phrase_id", record.PhraseID).
			WithContext("target_language", record.TargetLanguage)
	}
	return nil
}
