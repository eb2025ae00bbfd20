package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"lingo-quiz/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLXPhraseRepository_GetByText(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXPhraseRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM phrases WHERE normalized_text = \? AND source_language = \?`).
		WithArgs("haus", "de").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "normalized_text", "source_language", "quizzable", "search_count", "created_at", "updated_at"}).
			AddRow("phrase-1", "Haus", "haus", "de", 1, 4, now, now))

	p, err := repo.GetByText(context.Background(), "haus", "de")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.Quizzable)
	assert.Equal(t, 4, p.SearchCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXPhraseRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXPhraseRepository(db)

	mock.ExpectQuery(`SELECT .* FROM phrases WHERE id = \?`).WillReturnError(sql.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestSQLXPhraseRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXPhraseRepository(db)

	now := time.Now().UTC()
	p := domain.NewPhrase("phrase-1", "  Das   Haus ", "de", now)
	mock.ExpectExec(`INSERT INTO phrases`).
		WithArgs("phrase-1", "Das Haus", "das haus", "de", 1, 1, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXPhraseRepository_Create_Duplicate(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXPhraseRepository(db)

	mock.ExpectExec(`INSERT INTO phrases`).WillReturnError(errors.New("ORA-00001: unique constraint violated"))

	err := repo.Create(context.Background(), domain.NewPhrase("", "Haus", "de", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestSQLXTranslationRepository_Get(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXTranslationRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM translations WHERE phrase_id = \? AND target_language = \?`).
		WithArgs("phrase-1", "en").
		WillReturnRows(sqlmock.NewRows([]string{"id", "phrase_id", "target_language", "entries", "model", "created_at", "updated_at"}).
			AddRow("tr-1", "phrase-1", "en", `[{"word":"house","tag":"noun"},{"word":"home"}]`, "llama3", now, now))

	rec, err := repo.Get(context.Background(), "phrase-1", "en")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"house", "home"}, rec.Words())
	assert.Equal(t, "llama3", rec.Model)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTranslationRepository_ListByPhrase(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXTranslationRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM translations WHERE phrase_id = \? ORDER BY updated_at DESC, id DESC`).
		WithArgs("phrase-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "phrase_id", "target_language", "entries", "model", "created_at", "updated_at"}).
			AddRow("tr-2", "phrase-1", "fr", `[{"word":"maison"}]`, "llama3", now, now).
			AddRow("tr-1", "phrase-1", "en", `[{"word":"house"}]`, "llama3", now.Add(-time.Hour), now.Add(-time.Hour)))

	recs, err := repo.ListByPhrase(context.Background(), "phrase-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "fr", recs[0].TargetLanguage)
	assert.Equal(t, []string{"house"}, recs[1].Words())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTranslationRepository_Replace_Missing(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXTranslationRepository(db)

	mock.ExpectExec(`UPDATE translations SET entries = \?`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Replace(context.Background(), &domain.TranslationRecord{PhraseID: "phrase-1", TargetLanguage: "en"})
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}
