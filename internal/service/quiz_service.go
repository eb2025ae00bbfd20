package service

import (
	"context"
	"errors"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/util"

	"go.uber.org/zap"
)

// TranslationProvider returns the translation of a phrase into one language.
type TranslationProvider interface {
	Translation(ctx context.Context, phrase *domain.Phrase, targetLanguage string) (*domain.TranslationRecord, error)
	StoredTranslation(ctx context.Context, phrase *domain.Phrase) (*domain.TranslationRecord, error)
}

// QuizService is the learning engine the HTTP layer talks to.
type QuizService interface {
	OnSearch(ctx context.Context, userID, phraseID, contextSentence string) (*dto.QuizSignalResponse, error)
	FetchNextQuestion(ctx context.Context, userID, phraseID string) (*dto.NextQuestionResponse, error)
	SubmitAnswer(ctx context.Context, userID, attemptID, answer string) (*dto.AnswerResultResponse, error)
	SkipQuestion(ctx context.Context, userID, attemptID string) error
	SkipAndFetchNext(ctx context.Context, userID, attemptID string) (*dto.NextQuestionResponse, error)
}

// QuizServiceDeps groups the collaborators of the quiz engine.
type QuizServiceDeps struct {
	Users                 domain.UserRepository
	Phrases               domain.PhraseRepository
	Records               domain.LearningRecordRepository
	Attempts              domain.QuizAttemptRepository
	Translations          TranslationProvider
	Trigger               QuizTrigger
	Selector              QuestionTypeSelector
	Generator             QuestionGenerator
	Evaluator             AnswerEvaluator
	Progress              ProgressUpdater
	TxManager             domain.TransactionManager
	DefaultNativeLanguage string
}

type quizService struct {
	QuizServiceDeps
	now func() time.Time
}

func NewQuizService(deps QuizServiceDeps) QuizService {
	return &quizService{
		QuizServiceDeps: deps,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// OnSearch counts the search, starts tracking a quizzable phrase and reports whether a quiz is owed.
func (s *quizService) OnSearch(ctx context.Context, userID, phraseID, contextSentence string) (*dto.QuizSignalResponse, error) {
	var result *domain.TriggerResult
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.Users.IncrementSearchCounter(txCtx, userID)
		if err != nil {
			if domain.HasCode(err, domain.CodeNotFound) {
				return err
			}
			return domain.NewPersistenceError("failed to increment search counter", err)
		}

		phrase, err := s.Phrases.GetByID(txCtx, phraseID)
		if err != nil {
			return domain.NewPersistenceError("failed to load phrase", err)
		}
		if phrase == nil {
			return domain.NewNotFoundError("phrase not found").WithContext("phrase_id", phraseID)
		}
		if phrase.Quizzable {
			if err := s.ensureLearningRecord(txCtx, userID, phraseID, contextSentence); err != nil {
				return err
			}
		}

		user, err := s.loadUser(txCtx, userID)
		if err != nil {
			return err
		}
		user.SearchesSinceQuiz = count

		result, err = s.Trigger.Evaluate(txCtx, user, TriggerOptions{})
		return err
	})
	if err != nil {
		return nil, err
	}

	signal := &dto.QuizSignalResponse{ShouldQuiz: result.ShouldQuiz, Reason: string(result.Reason)}
	if result.Record != nil {
		signal.PhraseID = result.Record.PhraseID
	}
	return signal, nil
}

func (s *quizService) ensureLearningRecord(ctx context.Context, userID, phraseID, contextSentence string) error {
	existing, err := s.Records.GetByUserAndPhrase(ctx, userID, phraseID)
	if err != nil {
		return domain.NewPersistenceError("failed to load learning record", err)
	}
	if existing != nil {
		return nil
	}

	record := domain.NewLearningRecord(util.NewULID(), userID, phraseID, domain.NormalizeText(contextSentence), s.now())
	if err := s.Records.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil
		}
		return domain.NewPersistenceError("failed to create learning record", err)
	}
	logger.Get().Info("Learning record created",
		zap.String("user_id", userID),
		zap.String("phrase_id", phraseID))
	return nil
}

// FetchNextQuestion quizzes phraseID when given, otherwise whatever the trigger selects.
// An explicit phrase passes the same enabled, due and language rules; only the search
// threshold is waived.
func (s *quizService) FetchNextQuestion(ctx context.Context, userID, phraseID string) (*dto.NextQuestionResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if phraseID != "" {
		record, err := s.Records.GetByUserAndPhrase(ctx, userID, phraseID)
		if err != nil {
			return nil, domain.NewPersistenceError("failed to load learning record", err)
		}
		if record == nil {
			return nil, domain.NewNotFoundError("learning record not found").WithContext("phrase_id", phraseID)
		}
		phrase, err := s.loadPhrase(ctx, record.PhraseID)
		if err != nil {
			return nil, err
		}
		if reason := domain.RecordEligibility(user, record, phrase.SourceLanguage, s.now()); reason != domain.TriggerReady {
			return &dto.NextQuestionResponse{Reason: string(reason)}, nil
		}
		return s.present(ctx, user, record, phrase)
	}

	result, err := s.Trigger.Evaluate(ctx, user, TriggerOptions{})
	if err != nil {
		return nil, err
	}
	if !result.ShouldQuiz {
		return &dto.NextQuestionResponse{Reason: string(result.Reason)}, nil
	}
	phrase, err := s.loadPhrase(ctx, result.Record.PhraseID)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, user, result.Record, phrase)
}

// present generates a question for record, stores the attempt and resets the search counter.
// A record with an unanswered attempt gets that attempt back instead of a second one.
// Nothing is written when generation fails, so the quiz stays owed.
func (s *quizService) present(ctx context.Context, user *domain.User, record *domain.LearningRecord, phrase *domain.Phrase) (*dto.NextQuestionResponse, error) {
	l := logger.Get()
	if pending, err := s.pendingAttempt(ctx, user, record); err != nil || pending != nil {
		return pending, err
	}

	native := s.nativeLanguage(user)
	translation, err := s.Translations.Translation(ctx, phrase, native)
	if err != nil {
		translation, err = s.storedTranslationFallback(ctx, phrase, err)
		if err != nil {
			return nil, err
		}
		native = translation.TargetLanguage
	}

	qType, err := s.Selector.Select(record.Stage, user)
	if err != nil {
		return nil, err
	}
	payload, err := s.Generator.Generate(ctx, GenerationInput{
		Type:            qType,
		Phrase:          phrase,
		Translation:     translation,
		NativeLanguage:  native,
		ContextSentence: record.ContextSentence,
	})
	if err != nil {
		l.Error("Question generation failed",
			zap.String("user_id", user.ID),
			zap.String("phrase_id", phrase.ID),
			zap.String("question_type", string(qType)),
			zap.Error(err))
		return nil, err
	}

	attempt := &domain.QuizAttempt{
		ID:               util.NewULID(),
		UserID:           user.ID,
		PhraseID:         phrase.ID,
		LearningRecordID: record.ID,
		Payload:          *payload,
		Status:           domain.AttemptGenerated,
		CreatedAt:        s.now(),
	}
	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Attempts.Create(txCtx, attempt); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return err
			}
			return domain.NewPersistenceError("failed to store quiz attempt", err)
		}
		if err := s.Users.ResetSearchCounter(txCtx, user.ID); err != nil {
			return domain.NewPersistenceError("failed to reset search counter", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// A concurrent request stored the record's attempt first.
		if pending, perr := s.pendingAttempt(ctx, user, record); perr != nil || pending != nil {
			return pending, perr
		}
		return nil, domain.NewPersistenceError("failed to store quiz attempt", err)
	}
	if err != nil {
		return nil, err
	}

	l.Info("Quiz question generated",
		zap.String("user_id", user.ID),
		zap.String("attempt_id", attempt.ID),
		zap.String("question_type", string(payload.Type)),
		zap.Bool("fallback", payload.Fallback))
	return &dto.NextQuestionResponse{Available: true, Question: toQuestionResponse(attempt, record.Stage)}, nil
}

// pendingAttempt re-presents the record's unanswered attempt, if any.
func (s *quizService) pendingAttempt(ctx context.Context, user *domain.User, record *domain.LearningRecord) (*dto.NextQuestionResponse, error) {
	pending, err := s.Attempts.GetPending(ctx, record.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to look up pending quiz attempt", err)
	}
	if pending == nil {
		return nil, nil
	}
	if err := s.Users.ResetSearchCounter(ctx, user.ID); err != nil {
		return nil, domain.NewPersistenceError("failed to reset search counter", err)
	}
	logger.Get().Info("Re-presenting pending quiz attempt",
		zap.String("user_id", user.ID),
		zap.String("attempt_id", pending.ID))
	return &dto.NextQuestionResponse{Available: true, Question: toQuestionResponse(pending, record.Stage)}, nil
}

// storedTranslationFallback swaps a failed translation for any stored language of the
// phrase so the deterministic question fallback can still run.
func (s *quizService) storedTranslationFallback(ctx context.Context, phrase *domain.Phrase, cause error) (*domain.TranslationRecord, error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return nil, cause
	}
	stored, err := s.Translations.StoredTranslation(ctx, phrase)
	if err != nil || stored == nil {
		if err != nil {
			logger.Get().Warn("Stored translation lookup failed", zap.String("phrase_id", phrase.ID), zap.Error(err))
		}
		return nil, cause
	}
	logger.Get().Warn("Translation unavailable, quizzing a stored language",
		zap.String("phrase_id", phrase.ID),
		zap.String("target_language", stored.TargetLanguage),
		zap.Error(cause))
	return stored, nil
}

// SubmitAnswer evaluates outside the transaction, then records the verdict and the progress together.
func (s *quizService) SubmitAnswer(ctx context.Context, userID, attemptID, answer string) (*dto.AnswerResultResponse, error) {
	if domain.NormalizeText(answer) == "" {
		return nil, domain.NewEmptyAnswerError()
	}
	attempt, err := s.loadAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != domain.AttemptGenerated {
		return nil, domain.NewAlreadyAnsweredError(attemptID).WithContext("status", string(attempt.Status))
	}

	translation := s.translationForEvaluation(ctx, userID, attempt)
	eval, err := s.Evaluator.Evaluate(ctx, attempt.Payload, answer, translation)
	if err != nil {
		return nil, err
	}

	now := s.now()
	submitted := domain.NormalizeText(answer)
	correct := eval.Correct
	attempt.SubmittedAnswer = &submitted
	attempt.IsCorrect = &correct
	attempt.MatchedAnswer = eval.MatchedAnswer
	attempt.Explanation = eval.Explanation
	attempt.EvaluationMethod = string(eval.Method)
	attempt.EvaluationTrace = eval.Trace
	attempt.AnsweredAt = &now

	var change domain.ProgressChange
	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Attempts.MarkAnswered(txCtx, attempt); err != nil {
			if errors.Is(err, domain.ErrAttemptNotPending) {
				return domain.NewAlreadyAnsweredError(attemptID)
			}
			return domain.NewPersistenceError("failed to record answer", err)
		}
		_, change, err = s.Progress.Apply(txCtx, attempt.LearningRecordID, correct, now)
		return err
	})
	if err != nil {
		if !domain.HasCode(err, domain.CodeAlreadyAnswered) {
			logger.Get().Error("Failed to record quiz answer",
				zap.String("user_id", userID),
				zap.String("attempt_id", attemptID),
				zap.String("phrase_id", attempt.PhraseID),
				zap.Error(err))
		}
		return nil, err
	}

	return &dto.AnswerResultResponse{
		AttemptID:        attempt.ID,
		Correct:          correct,
		Explanation:      eval.Explanation,
		MatchedAnswer:    eval.MatchedAnswer,
		AcceptedAnswers:  attempt.Payload.AcceptedAnswers,
		EvaluationMethod: string(eval.Method),
		PreviousStage:    string(change.PreviousStage),
		NewStage:         string(change.NewStage),
		Advanced:         change.Advanced,
		NextReviewDate:   change.NextReviewDate,
	}, nil
}

// translationForEvaluation gives the LLM tier synonym context; evaluation proceeds without it.
func (s *quizService) translationForEvaluation(ctx context.Context, userID string, attempt *domain.QuizAttempt) *domain.TranslationRecord {
	if attempt.Payload.Type.IsMultipleChoice() {
		return nil
	}
	phrase, err := s.Phrases.GetByID(ctx, attempt.PhraseID)
	if err == nil && phrase != nil {
		lang := attempt.Payload.AnswerLanguage
		if lang == phrase.SourceLanguage {
			lang = attempt.Payload.QuestionLanguage
		}
		if lang != "" && lang != phrase.SourceLanguage {
			translation, terr := s.Translations.Translation(ctx, phrase, lang)
			if terr == nil {
				return translation
			}
			err = terr
		}
	}
	if err != nil {
		logger.Get().Warn("Translation data unavailable for answer evaluation",
			zap.String("user_id", userID),
			zap.String("attempt_id", attempt.ID),
			zap.Error(err))
	}
	return nil
}

// SkipQuestion is idempotent and never touches the learning record.
func (s *quizService) SkipQuestion(ctx context.Context, userID, attemptID string) error {
	_, err := s.skip(ctx, userID, attemptID)
	return err
}

// SkipAndFetchNext skips, then offers the next due phrase regardless of the search threshold.
func (s *quizService) SkipAndFetchNext(ctx context.Context, userID, attemptID string) (*dto.NextQuestionResponse, error) {
	attempt, err := s.skip(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.Trigger.Evaluate(ctx, user, TriggerOptions{
		IgnoreThreshold:  true,
		ExcludePhraseIDs: []string{attempt.PhraseID},
	})
	if err != nil {
		return nil, err
	}
	if !result.ShouldQuiz {
		return &dto.NextQuestionResponse{Reason: string(result.Reason)}, nil
	}
	phrase, err := s.loadPhrase(ctx, result.Record.PhraseID)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, user, result.Record, phrase)
}

func (s *quizService) skip(ctx context.Context, userID, attemptID string) (*domain.QuizAttempt, error) {
	attempt, err := s.loadAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case domain.AttemptSkipped:
		return attempt, nil
	case domain.AttemptAnswered:
		return nil, domain.NewAlreadyAnsweredError(attemptID).WithContext("status", string(attempt.Status))
	}

	if err := s.Attempts.MarkSkipped(ctx, attemptID, s.now()); err != nil {
		if !errors.Is(err, domain.ErrAttemptNotPending) {
			return nil, domain.NewPersistenceError("failed to skip quiz attempt", err)
		}
		// Lost a race: settle on whatever the other request stored.
		current, err := s.loadAttempt(ctx, userID, attemptID)
		if err != nil {
			return nil, err
		}
		if current.Status != domain.AttemptSkipped {
			return nil, domain.NewAlreadyAnsweredError(attemptID).WithContext("status", string(current.Status))
		}
		return current, nil
	}

	logger.Get().Info("Quiz question skipped",
		zap.String("user_id", userID),
		zap.String("attempt_id", attemptID))
	attempt.Status = domain.AttemptSkipped
	return attempt, nil
}

func (s *quizService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user not found").WithContext("user_id", userID)
	}
	return user, nil
}

func (s *quizService) loadPhrase(ctx context.Context, phraseID string) (*domain.Phrase, error) {
	phrase, err := s.Phrases.GetByID(ctx, phraseID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load phrase", err)
	}
	if phrase == nil {
		return nil, domain.NewNotFoundError("phrase not found").WithContext("phrase_id", phraseID)
	}
	return phrase, nil
}

// loadAttempt hides attempts owned by other users behind NOT_FOUND.
func (s *quizService) loadAttempt(ctx context.Context, userID, attemptID string) (*domain.QuizAttempt, error) {
	attempt, err := s.Attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load quiz attempt", err)
	}
	if attempt == nil || attempt.UserID != userID {
		return nil, domain.NewNotFoundError("quiz attempt not found").WithContext("attempt_id", attemptID)
	}
	return attempt, nil
}

func (s *quizService) nativeLanguage(user *domain.User) string {
	if user.NativeLanguage != "" {
		return user.NativeLanguage
	}
	return s.DefaultNativeLanguage
}

// toQuestionResponse leaves options nil for text questions.
func toQuestionResponse(attempt *domain.QuizAttempt, stage domain.Stage) *dto.QuestionResponse {
	return &dto.QuestionResponse{
		AttemptID:        attempt.ID,
		PhraseID:         attempt.PhraseID,
		Stage:            string(stage),
		QuestionType:     string(attempt.Payload.Type),
		QuestionText:     attempt.Payload.QuestionText,
		Options:          attempt.Payload.Options,
		QuestionLanguage: attempt.Payload.QuestionLanguage,
		AnswerLanguage:   attempt.Payload.AnswerLanguage,
		ContextSentence:  attempt.Payload.ContextSentence,
		Fallback:         attempt.Payload.Fallback,
	}
}
