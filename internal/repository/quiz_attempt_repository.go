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

const quizAttemptColumns = `id, user_id, phrase_id, learning_record_id, question_type, question_text, options,
	accepted_answers, question_language, answer_language, context_sentence, is_fallback, status,
	submitted_answer, is_correct, matched_answer, explanation, evaluation_method, evaluation_trace,
	created_at, answered_at`

// Column budgets of the Oracle schema, in characters. Explanation and trace are
// CLOBs but stay below the 32 KB go-ora binds as a plain string.
const (
	maxSubmittedAnswerRunes = 1000
	maxMatchedAnswerRunes   = 1000
	maxExplanationRunes     = 4000
	maxEvaluationTraceRunes = 8000
)

type sqlxQuizAttemptRepository struct {
	db DBTX
}

func NewSQLXQuizAttemptRepository(db DBTX) domain.QuizAttemptRepository {
	return &sqlxQuizAttemptRepository{db: db}
}

func toDomainQuizAttempt(m *models.QuizAttempt) *domain.QuizAttempt {
	return &domain.QuizAttempt{
		ID:               m.ID,
		UserID:           m.UserID,
		PhraseID:         m.PhraseID,
		LearningRecordID: m.LearningRecordID,
		Payload: domain.QuestionPayload{
			Type:             domain.QuestionType(m.QuestionType),
			QuestionText:     m.QuestionText,
			Options:          []string(m.Options),
			AcceptedAnswers:  []string(m.AcceptedAnswers),
			QuestionLanguage: m.QuestionLanguage.String,
			AnswerLanguage:   m.AnswerLanguage.String,
			ContextSentence:  m.ContextSentence.String,
			Fallback:         m.IsFallback != 0,
		},
		Status:           domain.AttemptStatus(m.Status),
		SubmittedAnswer:  util.NullStringToPtr(m.SubmittedAnswer),
		IsCorrect:        util.NullIntToBoolPtr(m.IsCorrect),
		MatchedAnswer:    m.MatchedAnswer.String,
		Explanation:      m.Explanation.String,
		EvaluationMethod: m.EvaluationMethod.String,
		EvaluationTrace:  m.EvaluationTrace.String,
		CreatedAt:        m.CreatedAt,
		AnsweredAt:       util.NullTimeToPtr(m.AnsweredAt),
	}
}

func (r *sqlxQuizAttemptRepository) Create(ctx context.Context, attempt *domain.QuizAttempt) error {
	if attempt.ID == "" {
		attempt.ID = util.NewULID()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	if attempt.Status == "" {
		attempt.Status = domain.AttemptGenerated
	}

	p := attempt.Payload
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO quiz_attempts (id, user_id, phrase_id, learning_record_id, question_type,
		question_text, options, accepted_answers, question_language, answer_language, context_sentence,
		is_fallback, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query,
		attempt.ID, attempt.UserID, attempt.PhraseID, attempt.LearningRecordID, string(p.Type),
		p.QuestionText, models.StringSlice(p.Options), models.StringSlice(p.AcceptedAnswers),
		util.StringToNullString(p.QuestionLanguage), util.StringToNullString(p.AnswerLanguage),
		util.StringToNullString(p.ContextSentence), util.BoolToInt(p.Fallback),
		string(attempt.Status), attempt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}
	return nil
}

func (r *sqlxQuizAttemptRepository) GetByID(ctx context.Context, id string) (*domain.QuizAttempt, error) {
	exec := GetExecutor(ctx, r.db)
	var m models.QuizAttempt
	query := exec.Rebind(`SELECT ` + quizAttemptColumns + ` FROM quiz_attempts WHERE id = ?`)
	if err := exec.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz attempt: %w", err)
	}
	return toDomainQuizAttempt(&m), nil
}

func (r *sqlxQuizAttemptRepository) GetPending(ctx context.Context, learningRecordID string) (*domain.QuizAttempt, error) {
	exec := GetExecutor(ctx, r.db)
	var rows []models.QuizAttempt
	query := exec.Rebind(`SELECT ` + quizAttemptColumns + ` FROM quiz_attempts
		WHERE learning_record_id = ? AND status = ? ORDER BY created_at DESC, id DESC`)
	if err := exec.SelectContext(ctx, &rows, query, learningRecordID, string(domain.AttemptGenerated)); err != nil {
		return nil, fmt.Errorf("failed to get pending quiz attempt: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return toDomainQuizAttempt(&rows[0]), nil
}

// MarkAnswered only transitions attempts that are still generated, so two
// concurrent submissions cannot both record a verdict.
func (r *sqlxQuizAttemptRepository) MarkAnswered(ctx context.Context, attempt *domain.QuizAttempt) error {
	if attempt.AnsweredAt == nil {
		now := time.Now().UTC()
		attempt.AnsweredAt = &now
	}
	if attempt.SubmittedAnswer != nil {
		submitted := domain.TruncateRunes(*attempt.SubmittedAnswer, maxSubmittedAnswerRunes)
		attempt.SubmittedAnswer = &submitted
	}
	attempt.MatchedAnswer = domain.TruncateRunes(attempt.MatchedAnswer, maxMatchedAnswerRunes)
	attempt.Explanation = domain.TruncateRunes(attempt.Explanation, maxExplanationRunes)
	attempt.EvaluationTrace = domain.TruncateRunes(attempt.EvaluationTrace, maxEvaluationTraceRunes)

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE quiz_attempts SET status = ?, submitted_answer = ?, is_correct = ?,
		matched_answer = ?, explanation = ?, evaluation_method = ?, evaluation_trace = ?, answered_at = ?
		WHERE id = ? AND status = ?`)
	res, err := exec.ExecContext(ctx, query,
		string(domain.AttemptAnswered), util.StringPtrToNullString(attempt.SubmittedAnswer),
		util.BoolPtrToNullInt(attempt.IsCorrect), util.StringToNullString(attempt.MatchedAnswer),
		util.StringToNullString(attempt.Explanation), util.StringToNullString(attempt.EvaluationMethod),
		util.StringToNullString(attempt.EvaluationTrace), util.TimePtrToNullTime(attempt.AnsweredAt),
		attempt.ID, string(domain.AttemptGenerated))
	if err != nil {
		return fmt.Errorf("failed to mark quiz attempt answered: %w", err)
	}
	ok, err := requireOneRow(res)
	if err != nil {
		return fmt.Errorf("failed to mark quiz attempt answered: %w", err)
	}
	if !ok {
		return domain.ErrAttemptNotPending
	}
	attempt.Status = domain.AttemptAnswered
	return nil
}

func (r *sqlxQuizAttemptRepository) MarkSkipped(ctx context.Context, id string, at time.Time) error {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE quiz_attempts SET status = ?, answered_at = ? WHERE id = ? AND status = ?`)
	res, err := exec.ExecContext(ctx, query, string(domain.AttemptSkipped), at, id, string(domain.AttemptGenerated))
	if err != nil {
		return fmt.Errorf("failed to mark quiz attempt skipped: %w", err)
	}
	ok, err := requireOneRow(res)
	if err != nil {
		return fmt.Errorf("failed to mark quiz attempt skipped: %w", err)
	}
	if !ok {
		return domain.ErrAttemptNotPending
	}
	return nil
}

func (r *sqlxQuizAttemptRepository) ListByUser(ctx context.Context, userID string, page domain.Page) ([]*domain.QuizAttempt, int, error) {
	exec := GetExecutor(ctx, r.db)
	var total int
	if err := exec.GetContext(ctx, &total, exec.Rebind(`SELECT COUNT(*) FROM quiz_attempts WHERE user_id = ?`), userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count quiz attempts: %w", err)
	}

	query := exec.Rebind(`SELECT ` + quizAttemptColumns + ` FROM quiz_attempts WHERE user_id = ?
		ORDER BY created_at DESC, id DESC OFFSET ? ROWS FETCH NEXT ? ROWS ONLY`)
	var rows []models.QuizAttempt
	if err := exec.SelectContext(ctx, &rows, query, userID, page.Offset, page.Limit); err != nil {
		return nil, 0, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	attempts := make([]*domain.QuizAttempt, 0, len(rows))
	for i := range rows {
		attempts = append(attempts, toDomainQuizAttempt(&rows[i]))
	}
	return attempts, total, nil
}
