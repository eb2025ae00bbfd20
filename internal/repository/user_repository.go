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

const userColumns = `id, google_id, email, name, profile_picture_url, native_language, translator_languages,
	quiz_enabled, quiz_frequency, searches_since_quiz, disabled_question_types, created_at, updated_at`

type sqlxUserRepository struct {
	db DBTX
}

// NewSQLXUserRepository creates a new instance of sqlxUserRepository.
func NewSQLXUserRepository(db DBTX) domain.UserRepository {
	return &sqlxUserRepository{db: db}
}

func toDomainUser(m *models.User) *domain.User {
	if m == nil {
		return nil
	}
	disabled := make([]domain.QuestionType, 0, len(m.DisabledQuestionTypes))
	for _, t := range m.DisabledQuestionTypes {
		disabled = append(disabled, domain.QuestionType(t))
	}
	return &domain.User{
		ID:                    m.ID,
		GoogleID:              m.GoogleID.String,
		Email:                 m.Email.String,
		Name:                  m.Name.String,
		ProfilePictureURL:     m.ProfilePictureURL.String,
		NativeLanguage:        m.NativeLanguage,
		TranslatorLanguages:   []string(m.TranslatorLanguages),
		QuizEnabled:           m.QuizEnabled != 0,
		QuizFrequency:         m.QuizFrequency,
		SearchesSinceQuiz:     m.SearchesSinceQuiz,
		DisabledQuestionTypes: disabled,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func fromDomainUser(u *domain.User) *models.User {
	if u == nil {
		return nil
	}
	disabled := make(models.StringSlice, 0, len(u.DisabledQuestionTypes))
	for _, t := range u.DisabledQuestionTypes {
		disabled = append(disabled, string(t))
	}
	return &models.User{
		ID:                    u.ID,
		GoogleID:              util.StringToNullString(u.GoogleID),
		Email:                 util.StringToNullString(u.Email),
		Name:                  util.StringToNullString(u.Name),
		ProfilePictureURL:     util.StringToNullString(u.ProfilePictureURL),
		NativeLanguage:        u.NativeLanguage,
		TranslatorLanguages:   models.StringSlice(u.TranslatorLanguages),
		QuizEnabled:           util.BoolToInt(u.QuizEnabled),
		QuizFrequency:         u.QuizFrequency,
		SearchesSinceQuiz:     u.SearchesSinceQuiz,
		DisabledQuestionTypes: disabled,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func (r *sqlxUserRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	var m models.User
	query := exec.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	if err := exec.GetContext(ctx, &m, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return toDomainUser(&m), nil
}

func (r *sqlxUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.getOne(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

func (r *sqlxUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	u, err := r.getOne(ctx, "google_id = ?", googleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by google_id: %w", err)
	}
	return u, nil
}

func (r *sqlxUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = util.NewULID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	m := fromDomainUser(user)
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query,
		m.ID, m.GoogleID, m.Email, m.Name, m.ProfilePictureURL, m.NativeLanguage, m.TranslatorLanguages,
		m.QuizEnabled, m.QuizFrequency, m.SearchesSinceQuiz, m.DisabledQuestionTypes, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqlxUserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	m := fromDomainUser(user)
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE users SET email = ?, name = ?, profile_picture_url = ?, updated_at = ? WHERE id = ?`)
	if _, err := exec.ExecContext(ctx, query, m.Email, m.Name, m.ProfilePictureURL, m.UpdatedAt, m.ID); err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (r *sqlxUserRepository) UpdatePreferences(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	m := fromDomainUser(user)
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE users SET native_language = ?, translator_languages = ?, quiz_enabled = ?,
		quiz_frequency = ?, disabled_question_types = ?, updated_at = ? WHERE id = ?`)
	res, err := exec.ExecContext(ctx, query, m.NativeLanguage, m.TranslatorLanguages, m.QuizEnabled,
		m.QuizFrequency, m.DisabledQuestionTypes, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update user preferences: %w", err)
	}
	if ok, err := requireOneRow(res); err != nil {
		return fmt.Errorf("failed to update user preferences: %w", err)
	} else if !ok {
		return domain.NewNotFoundError("user not found").WithContext("user_id", user.ID)
	}
	return nil
}

// IncrementSearchCounter relies on the UPDATE row lock, so concurrent searches by one
// user are serialized and each sees its own value when run inside a transaction.
func (r *sqlxUserRepository) IncrementSearchCounter(ctx context.Context, userID string) (int, error) {
	exec := GetExecutor(ctx, r.db)
	update := exec.Rebind(`UPDATE users SET searches_since_quiz = searches_since_quiz + 1, updated_at = ? WHERE id = ?`)
	res, err := exec.ExecContext(ctx, update, time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment search counter: %w", err)
	}
	if ok, err := requireOneRow(res); err != nil {
		return 0, fmt.Errorf("failed to increment search counter: %w", err)
	} else if !ok {
		return 0, domain.NewNotFoundError("user not found").WithContext("user_id", userID)
	}

	var count int
	if err := exec.GetContext(ctx, &count, exec.Rebind(`SELECT searches_since_quiz FROM users WHERE id = ?`), userID); err != nil {
		return 0, fmt.Errorf("failed to read search counter: %w", err)
	}
	return count, nil
}

func (r *sqlxUserRepository) ResetSearchCounter(ctx context.Context, userID string) error {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE users SET searches_since_quiz = 0, updated_at = ? WHERE id = ?`)
	if _, err := exec.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("failed to reset search counter: %w", err)
	}
	return nil
}
