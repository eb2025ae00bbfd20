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

var learningRecordRowColumns = []string{"id", "user_id", "phrase_id", "stage", "times_reviewed", "times_correct",
	"times_incorrect", "next_review_date", "last_reviewed_at", "first_seen_at", "context_sentence", "created_at", "updated_at"}

func TestSQLXLearningRecordRepository_GetByUserAndPhrase(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := domain.StartOfDay(now)
	mock.ExpectQuery(`SELECT .* FROM learning_records WHERE user_id = \? AND phrase_id = \?`).
		WithArgs("user-1", "phrase-1").
		WillReturnRows(sqlmock.NewRows(learningRecordRowColumns).
			AddRow("lr-1", "user-1", "phrase-1", "intermediate", 1, 1, 0, due, now, now, "Das Haus ist alt.", now, now))

	rec, err := repo.GetByUserAndPhrase(context.Background(), "user-1", "phrase-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StageIntermediate, rec.Stage)
	require.NotNil(t, rec.NextReviewDate)
	assert.True(t, due.Equal(*rec.NextReviewDate))
	assert.Equal(t, "Das Haus ist alt.", rec.ContextSentence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXLearningRecordRepository_GetByUserAndPhrase_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	mock.ExpectQuery(`SELECT .* FROM learning_records`).WillReturnError(sql.ErrNoRows)

	rec, err := repo.GetByUserAndPhrase(context.Background(), "user-1", "phrase-x")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLXLearningRecordRepository_GetForUpdate_LocksRow(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM learning_records WHERE id = \? FOR UPDATE`).
		WithArgs("lr-1").
		WillReturnRows(sqlmock.NewRows(learningRecordRowColumns).
			AddRow("lr-1", "user-1", "phrase-1", "basic", 0, 0, 0, nil, nil, now, nil, now, now))

	rec, err := repo.GetForUpdate(context.Background(), "lr-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.NextReviewDate)
	assert.Equal(t, domain.StageBasic, rec.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXLearningRecordRepository_Create_Duplicate(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	mock.ExpectExec(`INSERT INTO learning_records`).
		WillReturnError(errors.New("ORA-00001: unique constraint (LQ.UQ_LR_USER_PHRASE) violated"))

	rec := domain.NewLearningRecord("", "user-1", "phrase-1", "", time.Now().UTC())
	err := repo.Create(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestSQLXLearningRecordRepository_Create_NullDueDate(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	now := time.Now().UTC()
	rec := domain.NewLearningRecord("lr-1", "user-1", "phrase-1", "ctx", now)
	mock.ExpectExec(`INSERT INTO learning_records`).
		WithArgs("lr-1", "user-1", "phrase-1", "basic", 0, 0, 0,
			sql.NullTime{}, sql.NullTime{}, now, "ctx", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXLearningRecordRepository_Update(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	now := time.Now().UTC()
	next := domain.StartOfDay(now).AddDate(0, 0, 3)
	rec := &domain.LearningRecord{ID: "lr-1", Stage: domain.StageIntermediate, TimesReviewed: 1, TimesCorrect: 1,
		NextReviewDate: &next, LastReviewedAt: &now, UpdatedAt: now}

	mock.ExpectExec(`UPDATE learning_records SET stage = \?`).
		WithArgs("intermediate", 1, 1, 0, next, now, now, "lr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Update(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXLearningRecordRepository_Update_Missing(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	mock.ExpectExec(`UPDATE learning_records`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.LearningRecord{ID: "gone", Stage: domain.StageBasic})
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

func TestSQLXLearningRecordRepository_FindDue(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	today := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	due := domain.StartOfDay(today).AddDate(0, 0, -2)
	rows := sqlmock.NewRows(learningRecordRowColumns).
		AddRow("lr-1", "user-1", "phrase-1", "basic", 1, 0, 1, due, due, due, nil, due, due)

	mock.ExpectQuery(`SELECT lr\.id, .* FROM learning_records lr\s+JOIN phrases p ON p\.id = lr\.phrase_id.*` +
		`lr\.stage <> \?.*p\.source_language IN \(\?, \?\).*lr\.phrase_id NOT IN \(\?\).*` +
		`ORDER BY COALESCE\(lr\.next_review_date, lr\.first_seen_at\) ASC, lr\.id ASC FETCH FIRST \? ROWS ONLY`).
		WithArgs("user-1", "mastered", domain.StartOfDay(today), "de", "fr", "phrase-9", 1).
		WillReturnRows(rows)

	records, err := repo.FindDue(context.Background(), domain.DueQuery{
		UserID:           "user-1",
		Languages:        []string{"de", "fr"},
		Today:            today,
		ExcludePhraseIDs: []string{"phrase-9"},
		Limit:            1,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "lr-1", records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXLearningRecordRepository_FindDue_AllLanguages(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	today := time.Now().UTC()
	mock.ExpectQuery(`\(lr\.next_review_date IS NULL OR lr\.next_review_date <= \?\) ORDER BY`).
		WithArgs("user-1", "mastered", domain.StartOfDay(today), 1).
		WillReturnRows(sqlmock.NewRows(learningRecordRowColumns))

	records, err := repo.FindDue(context.Background(), domain.DueQuery{UserID: "user-1", Today: today})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXLearningRecordRepository_CountByStage(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	mock.ExpectQuery(`SELECT stage, COUNT\(\*\) AS cnt FROM learning_records WHERE user_id = \? GROUP BY stage`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"stage", "cnt"}).
			AddRow("basic", 3).
			AddRow("mastered", 1))

	counts, err := repo.CountByStage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.StageCount{
		{Stage: domain.StageBasic, Count: 3},
		{Stage: domain.StageIntermediate, Count: 0},
		{Stage: domain.StageAdvanced, Count: 0},
		{Stage: domain.StageMastered, Count: 1},
	}, counts)
}

func TestSQLXLearningRecordRepository_ListByUser_StageFilter(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXLearningRecordRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM learning_records WHERE user_id = \? AND stage = \?`).
		WithArgs("user-1", "advanced").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM learning_records WHERE user_id = \? AND stage = \? ORDER BY .* OFFSET \? ROWS FETCH NEXT \? ROWS ONLY`).
		WithArgs("user-1", "advanced", 0, 20).
		WillReturnRows(sqlmock.NewRows(learningRecordRowColumns).
			AddRow("lr-2", "user-1", "phrase-2", "advanced", 0, 0, 0, now, now, now, nil, now, now))

	records, total, err := repo.ListByUser(context.Background(), "user-1", domain.StageAdvanced, domain.Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StageAdvanced, records[0].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
