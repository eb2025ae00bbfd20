package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/repository/models"
	"lingo-quiz/internal/util"
)

const learningRecordColumns = `id, user_id, phrase_id, stage, times_reviewed, times_correct, times_incorrect,
	next_review_date, last_reviewed_at, first_seen_at, context_sentence, created_at, updated_at`

const defaultDueLimit = 1

type sqlxLearningRecordRepository struct {
	db DBTX
}

func NewSQLXLearningRecordRepository(db DBTX) domain.LearningRecordRepository {
	return &sqlxLearningRecordRepository{db: db}
}

func toDomainLearningRecord(m *models.LearningRecord) *domain.LearningRecord {
	return &domain.LearningRecord{
		ID:              m.ID,
		UserID:          m.UserID,
		PhraseID:        m.PhraseID,
		Stage:           domain.Stage(m.Stage),
		TimesReviewed:   m.TimesReviewed,
		TimesCorrect:    m.TimesCorrect,
		TimesIncorrect:  m.TimesIncorrect,
		NextReviewDate:  util.NullTimeToPtr(m.NextReviewDate),
		LastReviewedAt:  util.NullTimeToPtr(m.LastReviewedAt),
		FirstSeenAt:     m.FirstSeenAt,
		ContextSentence: m.ContextSentence.String,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// prefixed qualifies every column with alias for joined queries.
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (r *sqlxLearningRecordRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.LearningRecord, error) {
	exec := GetExecutor(ctx, r.db)
	var m models.LearningRecord
	if err := exec.GetContext(ctx, &m, exec.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return toDomainLearningRecord(&m), nil
}

func (r *sqlxLearningRecordRepository) GetByID(ctx context.Context, id string) (*domain.LearningRecord, error) {
	rec, err := r.getOne(ctx, `SELECT `+learningRecordColumns+` FROM learning_records WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning record by id: %w", err)
	}
	return rec, nil
}

func (r *sqlxLearningRecordRepository) GetByUserAndPhrase(ctx context.Context, userID, phraseID string) (*domain.LearningRecord, error) {
	rec, err := r.getOne(ctx, `SELECT `+learningRecordColumns+` FROM learning_records WHERE user_id = ? AND phrase_id = ?`, userID, phraseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning record by user and phrase: %w", err)
	}
	return rec, nil
}

func (r *sqlxLearningRecordRepository) GetForUpdate(ctx context.Context, id string) (*domain.LearningRecord, error) {
	rec, err := r.getOne(ctx, `SELECT `+learningRecordColumns+` FROM learning_records WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock learning record: %w", err)
	}
	return rec, nil
}

func (r *sqlxLearningRecordRepository) Create(ctx context.Context, record *domain.LearningRecord) error {
	if record.ID == "" {
		record.ID = util.NewULID()
	}
	now := time.Now().UTC()
	if record.FirstSeenAt.IsZero() {
		record.FirstSeenAt = now
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO learning_records (` + learningRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query,
		record.ID, record.UserID, record.PhraseID, string(record.Stage),
		record.TimesReviewed, record.TimesCorrect, record.TimesIncorrect,
		util.TimePtrToNullTime(record.NextReviewDate), util.TimePtrToNullTime(record.LastReviewedAt),
		record.FirstSeenAt, util.StringToNullString(record.ContextSentence), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to create learning record: %w", err)
	}
	return nil
}

// Update writes every progress field in one statement. context_sentence keeps its first-seen value.
func (r *sqlxLearningRecordRepository) Update(ctx context.Context, record *domain.LearningRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE learning_records SET stage = ?, times_reviewed = ?, times_correct = ?,
		times_incorrect = ?, next_review_date = ?, last_reviewed_at = ?, updated_at = ? WHERE id = ?`)
	res, err := exec.ExecContext(ctx, query,
		string(record.Stage), record.TimesReviewed, record.TimesCorrect, record.TimesIncorrect,
		util.TimePtrToNullTime(record.NextReviewDate), util.TimePtrToNullTime(record.LastReviewedAt),
		record.UpdatedAt, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update learning record: %w", err)
	}
	if ok, err := requireOneRow(res); err != nil {
		return fmt.Errorf("failed to update learning record: %w", err)
	} else if !ok {
		return domain.NewNotFoundError("learning record not found").WithContext("learning_record_id", record.ID)
	}
	return nil
}

// FindDue treats never-reviewed records as due, ordered by first sight.
func (r *sqlxLearningRecordRepository) FindDue(ctx context.Context, q domain.DueQuery) ([]*domain.LearningRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultDueLimit
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + prefixed(learningRecordColumns, "lr") + `
		FROM learning_records lr
		JOIN phrases p ON p.id = lr.phrase_id
		WHERE lr.user_id = ?
		AND lr.stage <> ?
		AND (lr.next_review_date IS NULL OR lr.next_review_date <= ?)`)
	args := []interface{}{q.UserID, string(domain.StageMastered), domain.StartOfDay(q.Today)}
	if len(q.Languages) > 0 {
		sb.WriteString(` AND p.source_language IN (?)`)
		args = append(args, q.Languages)
	}
	if len(q.ExcludePhraseIDs) > 0 {
		sb.WriteString(` AND lr.phrase_id NOT IN (?)`)
		args = append(args, q.ExcludePhraseIDs)
	}
	sb.WriteString(` ORDER BY COALESCE(lr.next_review_date, lr.first_seen_at) ASC, lr.id ASC FETCH FIRST ? ROWS ONLY`)
	args = append(args, limit)

	exec := GetExecutor(ctx, r.db)
	query, expanded, err := expandIn(exec, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build due query: %w", err)
	}

	var rows []models.LearningRecord
	if err := exec.SelectContext(ctx, &rows, query, expanded...); err != nil {
		return nil, fmt.Errorf("failed to find due learning records: %w", err)
	}
	records := make([]*domain.LearningRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toDomainLearningRecord(&rows[i]))
	}
	return records, nil
}

func (r *sqlxLearningRecordRepository) ListByUser(ctx context.Context, userID string, stage domain.Stage, page domain.Page) ([]*domain.LearningRecord, int, error) {
	where := ` WHERE user_id = ?`
	args := []interface{}{userID}
	if stage != "" {
		where += ` AND stage = ?`
		args = append(args, string(stage))
	}

	exec := GetExecutor(ctx, r.db)
	var total int
	if err := exec.GetContext(ctx, &total, exec.Rebind(`SELECT COUNT(*) FROM learning_records`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count learning records: %w", err)
	}

	query := exec.Rebind(`SELECT ` + learningRecordColumns + ` FROM learning_records` + where +
		` ORDER BY updated_at DESC, id DESC OFFSET ? ROWS FETCH NEXT ? ROWS ONLY`)
	args = append(args, page.Offset, page.Limit)
	var rows []models.LearningRecord
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list learning records: %w", err)
	}
	records := make([]*domain.LearningRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toDomainLearningRecord(&rows[i]))
	}
	return records, total, nil
}

func (r *sqlxLearningRecordRepository) CountByStage(ctx context.Context, userID string) ([]domain.StageCount, error) {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`SELECT stage, COUNT(*) AS cnt FROM learning_records WHERE user_id = ? GROUP BY stage`)
	var rows []models.StageCount
	if err := exec.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to count learning records by stage: %w", err)
	}

	byStage := make(map[domain.Stage]int, len(rows))
	for _, row := range rows {
		byStage[domain.Stage(row.Stage)] = row.Count
	}
	counts := make([]domain.StageCount, 0, len(domain.Stages()))
	for _, s := range domain.Stages() {
		counts = append(counts, domain.StageCount{Stage: s, Count: byStage[s]})
	}
	return counts, nil
}
