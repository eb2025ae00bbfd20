package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingo-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type quizServiceMocks struct {
	users        *MockUserRepository
	phrases      *MockPhraseRepository
	records      *MockLearningRecordRepository
	attempts     *MockQuizAttemptRepository
	translations *MockTranslationService
	trigger      *MockQuizTrigger
	selector     *MockQuestionTypeSelector
	generator    *MockQuestionGenerator
	evaluator    *MockAnswerEvaluator
	progress     *MockProgressUpdater
	tx           *passThroughTxManager
}

func newTestQuizService() (*quizService, *quizServiceMocks) {
	m := &quizServiceMocks{
		users:        new(MockUserRepository),
		phrases:      new(MockPhraseRepository),
		records:      new(MockLearningRecordRepository),
		attempts:     new(MockQuizAttemptRepository),
		translations: new(MockTranslationService),
		trigger:      new(MockQuizTrigger),
		selector:     new(MockQuestionTypeSelector),
		generator:    new(MockQuestionGenerator),
		evaluator:    new(MockAnswerEvaluator),
		progress:     new(MockProgressUpdater),
		tx:           &passThroughTxManager{},
	}
	svc := NewQuizService(QuizServiceDeps{
		Users:                 m.users,
		Phrases:               m.phrases,
		Records:               m.records,
		Attempts:              m.attempts,
		Translations:          m.translations,
		Trigger:               m.trigger,
		Selector:              m.selector,
		Generator:             m.generator,
		Evaluator:             m.evaluator,
		Progress:              m.progress,
		TxManager:             m.tx,
		DefaultNativeLanguage: "en",
	}).(*quizService)
	svc.now = fixedNow
	return svc, m
}

func mcPayload() *domain.QuestionPayload {
	return &domain.QuestionPayload{
		Type:             domain.QuestionMultipleChoiceTarget,
		QuestionText:     `What does "Hund" mean?`,
		Options:          []string{"cat", "dog", "house", "tree"},
		AcceptedAnswers:  []string{"dog"},
		QuestionLanguage: "de",
		AnswerLanguage:   "en",
	}
}

func generatedAttempt() *domain.QuizAttempt {
	return &domain.QuizAttempt{
		ID:               "attempt-1",
		UserID:           "user-1",
		PhraseID:         "phrase-1",
		LearningRecordID: "rec-1",
		Payload:          *mcPayload(),
		Status:           domain.AttemptGenerated,
		CreatedAt:        fixedNow(),
	}
}

func TestQuizService_OnSearch_CreatesRecordAndTriggers(t *testing.T) {
	svc, m := newTestQuizService()
	record := dueRecord("rec-1", nil)

	m.users.On("IncrementSearchCounter", mock.Anything, "user-1").Return(5, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(nil, nil)
	m.records.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.LearningRecord) bool {
		return r.Stage == domain.StageBasic && r.NextReviewDate == nil &&
			r.ContextSentence == "Der Hund bellt." && r.FirstSeenAt.Equal(fixedNow())
	})).Return(nil)
	m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	m.trigger.On("Evaluate", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.SearchesSinceQuiz == 5
	}), TriggerOptions{}).Return(&domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: record}, nil)

	signal, err := svc.OnSearch(context.Background(), "user-1", "phrase-1", " Der Hund  bellt. ")

	require.NoError(t, err)
	assert.True(t, signal.ShouldQuiz)
	assert.Equal(t, "ready", signal.Reason)
	assert.Equal(t, record.PhraseID, signal.PhraseID)
	assert.Equal(t, 1, m.tx.calls)
	m.records.AssertExpectations(t)
	m.trigger.AssertExpectations(t)
}

func TestQuizService_OnSearch_NonQuizzablePhraseIsNotTracked(t *testing.T) {
	svc, m := newTestQuizService()
	sentence := domain.NewPhrase("phrase-2", "this is a whole sentence to translate", "de", fixedNow())

	m.users.On("IncrementSearchCounter", mock.Anything, "user-1").Return(1, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-2").Return(sentence, nil)
	m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	m.trigger.On("Evaluate", mock.Anything, mock.Anything, TriggerOptions{}).Return(domain.NoTrigger(domain.TriggerThresholdNotReached), nil)

	signal, err := svc.OnSearch(context.Background(), "user-1", "phrase-2", "")

	require.NoError(t, err)
	assert.False(t, signal.ShouldQuiz)
	assert.Equal(t, "threshold_not_reached", signal.Reason)
	assert.Empty(t, signal.PhraseID)
	m.records.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQuizService_OnSearch_ExistingOrRacingRecord(t *testing.T) {
	t.Run("existing record keeps its first example", func(t *testing.T) {
		svc, m := newTestQuizService()
		m.users.On("IncrementSearchCounter", mock.Anything, "user-1").Return(2, nil)
		m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
		m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(dueRecord("rec-1", nil), nil)
		m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
		m.trigger.On("Evaluate", mock.Anything, mock.Anything, TriggerOptions{}).Return(domain.NoTrigger(domain.TriggerThresholdNotReached), nil)

		_, err := svc.OnSearch(context.Background(), "user-1", "phrase-1", "Ein neuer Satz.")

		require.NoError(t, err)
		m.records.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate insert is treated as existing", func(t *testing.T) {
		svc, m := newTestQuizService()
		m.users.On("IncrementSearchCounter", mock.Anything, "user-1").Return(2, nil)
		m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
		m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(nil, nil)
		m.records.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicate)
		m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
		m.trigger.On("Evaluate", mock.Anything, mock.Anything, TriggerOptions{}).Return(domain.NoTrigger(domain.TriggerThresholdNotReached), nil)

		_, err := svc.OnSearch(context.Background(), "user-1", "phrase-1", "")

		require.NoError(t, err)
	})
}

func TestQuizService_OnSearch_TriggerFailureIsReturned(t *testing.T) {
	svc, m := newTestQuizService()
	m.users.On("IncrementSearchCounter", mock.Anything, "user-1").Return(5, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(dueRecord("rec-1", nil), nil)
	m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	m.trigger.On("Evaluate", mock.Anything, mock.Anything, TriggerOptions{}).
		Return(nil, domain.NewPersistenceError("failed to look up due phrases", errors.New("timeout")))

	_, err := svc.OnSearch(context.Background(), "user-1", "phrase-1", "")

	assert.True(t, domain.HasCode(err, domain.CodePersistence))
}

func TestQuizService_FetchNextQuestion_PresentsAndResetsCounter(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	user.SearchesSinceQuiz = 5
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"
	phrase := testPhrase()
	translation := testTranslation()

	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.trigger.On("Evaluate", mock.Anything, user, TriggerOptions{}).
		Return(&domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: record}, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(phrase, nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil)
	m.translations.On("Translation", mock.Anything, phrase, "en").Return(translation, nil)
	m.selector.On("Select", domain.StageBasic, user).Return(domain.QuestionMultipleChoiceTarget, nil)
	m.generator.On("Generate", mock.Anything, GenerationInput{
		Type:           domain.QuestionMultipleChoiceTarget,
		Phrase:         phrase,
		Translation:    translation,
		NativeLanguage: "en",
	}).Return(mcPayload(), nil)
	m.attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.QuizAttempt) bool {
		return a.Status == domain.AttemptGenerated && a.LearningRecordID == "rec-1" && a.UserID == "user-1"
	})).Return(nil)
	m.users.On("ResetSearchCounter", mock.Anything, "user-1").Return(nil)

	resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "")

	require.NoError(t, err)
	require.True(t, resp.Available)
	q := resp.Question
	assert.NotEmpty(t, q.AttemptID)
	assert.Equal(t, "phrase-1", q.PhraseID)
	assert.Equal(t, "basic", q.Stage)
	assert.Equal(t, "multiple_choice_target", q.QuestionType)
	assert.Len(t, q.Options, 4)
	m.attempts.AssertExpectations(t)
	m.users.AssertExpectations(t)
}

func TestQuizService_FetchNextQuestion_GenerationFailureKeepsCounter(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"

	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.trigger.On("Evaluate", mock.Anything, user, TriggerOptions{}).
		Return(&domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: record}, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil)
	m.translations.On("Translation", mock.Anything, mock.Anything, "en").Return(testTranslation(), nil)
	m.selector.On("Select", domain.StageBasic, user).Return(domain.QuestionMultipleChoiceSource, nil)
	m.generator.On("Generate", mock.Anything, mock.Anything).Return(nil, domain.NewNotFoundError("no cached translations for phrase"))

	_, err := svc.FetchNextQuestion(context.Background(), "user-1", "")

	require.Error(t, err)
	m.attempts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "ResetSearchCounter", mock.Anything, mock.Anything)
}

func TestQuizService_FetchNextQuestion_NoTrigger(t *testing.T) {
	svc, m := newTestQuizService()
	m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	m.trigger.On("Evaluate", mock.Anything, mock.Anything, TriggerOptions{}).Return(domain.NoTrigger(domain.TriggerDisabled), nil)

	resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "")

	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, "disabled", resp.Reason)
	assert.Nil(t, resp.Question)
}

func TestQuizService_FetchNextQuestion_ExplicitPhrase(t *testing.T) {
	t.Run("mastered phrase is never quizzed", func(t *testing.T) {
		svc, m := newTestQuizService()
		mastered := dueRecord("rec-1", nil)
		mastered.Stage = domain.StageMastered
		m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
		m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(mastered, nil)
		m.phrases.On("GetByID", mock.Anything, mastered.PhraseID).Return(testPhrase(), nil)

		resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "phrase-1")

		require.NoError(t, err)
		assert.False(t, resp.Available)
		assert.Equal(t, "no_phrases_due", resp.Reason)
		m.selector.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
	})

	t.Run("unknown phrase", func(t *testing.T) {
		svc, m := newTestQuizService()
		m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
		m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-x").Return(nil, nil)

		_, err := svc.FetchNextQuestion(context.Background(), "user-1", "phrase-x")

		assert.True(t, domain.HasCode(err, domain.CodeNotFound))
		m.trigger.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestQuizService_FetchNextQuestion_ExplicitPhraseEligibility(t *testing.T) {
	inSixDays := domain.StartOfDay(fixedNow()).AddDate(0, 0, 6)

	tests := []struct {
		name   string
		user   func() *domain.User
		record func() *domain.LearningRecord
		reason string
	}{
		{
			name:   "quizzing disabled",
			user:   func() *domain.User { u := testUser(); u.QuizEnabled = false; return u },
			record: func() *domain.LearningRecord { return dueRecord("rec-1", nil) },
			reason: "disabled",
		},
		{
			name:   "not due yet",
			user:   testUser,
			record: func() *domain.LearningRecord { return dueRecord("rec-1", &inSixDays) },
			reason: "no_phrases_due",
		},
		{
			name:   "source language not active",
			user:   func() *domain.User { u := testUser(); u.TranslatorLanguages = []string{"es"}; return u },
			record: func() *domain.LearningRecord { return dueRecord("rec-1", nil) },
			reason: "no_phrases_due",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestQuizService()
			record := tt.record()
			record.PhraseID = "phrase-1"
			m.users.On("GetByID", mock.Anything, "user-1").Return(tt.user(), nil)
			m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(record, nil)
			m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)

			resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "phrase-1")

			require.NoError(t, err)
			assert.False(t, resp.Available)
			assert.Equal(t, tt.reason, resp.Reason)
			m.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
			m.attempts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestQuizService_FetchNextQuestion_ExplicitPhraseWaivesThreshold(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	user.SearchesSinceQuiz = 0
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"

	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(record, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil)
	m.translations.On("Translation", mock.Anything, mock.Anything, "en").Return(testTranslation(), nil)
	m.selector.On("Select", domain.StageBasic, user).Return(domain.QuestionMultipleChoiceTarget, nil)
	m.generator.On("Generate", mock.Anything, mock.Anything).Return(mcPayload(), nil)
	m.attempts.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.users.On("ResetSearchCounter", mock.Anything, "user-1").Return(nil)

	resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "phrase-1")

	require.NoError(t, err)
	assert.True(t, resp.Available)
	m.trigger.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuizService_FetchNextQuestion_ReusesPendingAttempt(t *testing.T) {
	svc, m := newTestQuizService()
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"
	pending := generatedAttempt()

	m.users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(record, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(pending, nil)
	m.users.On("ResetSearchCounter", mock.Anything, "user-1").Return(nil)

	for i := 0; i < 2; i++ {
		resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "phrase-1")
		require.NoError(t, err)
		require.True(t, resp.Available)
		assert.Equal(t, "attempt-1", resp.Question.AttemptID)
		assert.Equal(t, mcPayload().Options, resp.Question.Options)
	}

	m.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	m.attempts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.translations.AssertNotCalled(t, "Translation", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuizService_FetchNextQuestion_ConcurrentCreateReturnsWinner(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"

	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.trigger.On("Evaluate", mock.Anything, user, TriggerOptions{}).
		Return(&domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: record}, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil).Once()
	m.translations.On("Translation", mock.Anything, mock.Anything, "en").Return(testTranslation(), nil)
	m.selector.On("Select", domain.StageBasic, user).Return(domain.QuestionMultipleChoiceTarget, nil)
	m.generator.On("Generate", mock.Anything, mock.Anything).Return(mcPayload(), nil)
	m.attempts.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicate)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(generatedAttempt(), nil).Once()
	m.users.On("ResetSearchCounter", mock.Anything, "user-1").Return(nil)

	resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "")

	require.NoError(t, err)
	require.True(t, resp.Available)
	assert.Equal(t, "attempt-1", resp.Question.AttemptID)
	m.attempts.AssertNumberOfCalls(t, "GetPending", 2)
}

func TestQuizService_FetchNextQuestion_TranslationOutageUsesStoredLanguage(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"
	phrase := testPhrase()
	french := &domain.TranslationRecord{ID: "tr-fr", PhraseID: "phrase-1", TargetLanguage: "fr",
		Entries: []domain.TranslationEntry{{Word: "chien"}}}
	outage := domain.NewLLMServiceError(errors.New("connection refused"))

	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.trigger.On("Evaluate", mock.Anything, user, TriggerOptions{}).
		Return(&domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: record}, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(phrase, nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil)
	m.translations.On("Translation", mock.Anything, phrase, "en").Return(nil, outage)
	m.translations.On("StoredTranslation", mock.Anything, phrase).Return(french, nil)
	m.selector.On("Select", domain.StageBasic, user).Return(domain.QuestionMultipleChoiceTarget, nil)
	m.generator.On("Generate", mock.Anything, GenerationInput{
		Type:           domain.QuestionMultipleChoiceTarget,
		Phrase:         phrase,
		Translation:    french,
		NativeLanguage: "fr",
	}).Return(mcPayload(), nil)
	m.attempts.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.users.On("ResetSearchCounter", mock.Anything, "user-1").Return(nil)

	resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "")

	require.NoError(t, err)
	assert.True(t, resp.Available)
	m.generator.AssertExpectations(t)
}

func TestQuizService_FetchNextQuestion_TranslationOutageWithNothingStored(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"
	outage := domain.NewLLMServiceError(errors.New("connection refused"))

	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.trigger.On("Evaluate", mock.Anything, user, TriggerOptions{}).
		Return(&domain.TriggerResult{ShouldQuiz: true, Reason: domain.TriggerReady, Record: record}, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil)
	m.translations.On("Translation", mock.Anything, mock.Anything, "en").Return(nil, outage)
	m.translations.On("StoredTranslation", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := svc.FetchNextQuestion(context.Background(), "user-1", "")

	assert.True(t, domain.HasCode(err, domain.CodeLLMServiceError))
	m.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestQuizService_SubmitAnswer_Correct(t *testing.T) {
	svc, m := newTestQuizService()
	next := domain.StartOfDay(fixedNow()).AddDate(0, 0, 1)

	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(generatedAttempt(), nil)
	m.evaluator.On("Evaluate", mock.Anything, *mcPayload(), " dog ", (*domain.TranslationRecord)(nil)).
		Return(&domain.Evaluation{Correct: true, MatchedAnswer: "dog", Explanation: "Correct!", Method: domain.EvalMultipleChoice}, nil)
	m.attempts.On("MarkAnswered", mock.Anything, mock.MatchedBy(func(a *domain.QuizAttempt) bool {
		return *a.SubmittedAnswer == "dog" && *a.IsCorrect && a.EvaluationMethod == "multiple_choice" &&
			a.AnsweredAt.Equal(fixedNow())
	})).Return(nil)
	m.progress.On("Apply", mock.Anything, "rec-1", true, fixedNow()).Return(
		&domain.LearningRecord{ID: "rec-1", Stage: domain.StageIntermediate},
		domain.ProgressChange{PreviousStage: domain.StageBasic, NewStage: domain.StageIntermediate, Advanced: true, NextReviewDate: &next},
		nil)

	resp, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", " dog ")

	require.NoError(t, err)
	assert.True(t, resp.Correct)
	assert.Equal(t, "dog", resp.MatchedAnswer)
	assert.Equal(t, []string{"dog"}, resp.AcceptedAnswers)
	assert.Equal(t, "basic", resp.PreviousStage)
	assert.Equal(t, "intermediate", resp.NewStage)
	assert.True(t, resp.Advanced)
	assert.Equal(t, &next, resp.NextReviewDate)
	m.progress.AssertExpectations(t)
	m.phrases.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestQuizService_SubmitAnswer_TextQuestionLoadsTranslation(t *testing.T) {
	svc, m := newTestQuizService()
	attempt := generatedAttempt()
	attempt.Payload = domain.QuestionPayload{
		Type:             domain.QuestionTextInputTarget,
		QuestionText:     `Translate "Hund".`,
		AcceptedAnswers:  []string{"dog", "hound"},
		QuestionLanguage: "de",
		AnswerLanguage:   "en",
	}
	phrase := testPhrase()
	translation := testTranslation()

	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(phrase, nil)
	m.translations.On("Translation", mock.Anything, phrase, "en").Return(translation, nil)
	m.evaluator.On("Evaluate", mock.Anything, attempt.Payload, "doggo", translation).
		Return(&domain.Evaluation{Correct: false, Explanation: "Not quite.", Method: domain.EvalLLM, Trace: "{}"}, nil)
	m.attempts.On("MarkAnswered", mock.Anything, mock.Anything).Return(nil)
	m.progress.On("Apply", mock.Anything, "rec-1", false, fixedNow()).
		Return(&domain.LearningRecord{ID: "rec-1"}, domain.ProgressChange{PreviousStage: domain.StageIntermediate, NewStage: domain.StageIntermediate}, nil)

	resp, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", "doggo")

	require.NoError(t, err)
	assert.False(t, resp.Correct)
	assert.Equal(t, "llm", resp.EvaluationMethod)
	m.evaluator.AssertExpectations(t)
}

func TestQuizService_SubmitAnswer_DoubleSubmit(t *testing.T) {
	t.Run("already answered", func(t *testing.T) {
		svc, m := newTestQuizService()
		answered := generatedAttempt()
		answered.Status = domain.AttemptAnswered
		m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(answered, nil)

		_, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", "dog")

		assert.True(t, domain.HasCode(err, domain.CodeAlreadyAnswered))
		m.evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent submit loses the conditional update", func(t *testing.T) {
		svc, m := newTestQuizService()
		m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(generatedAttempt(), nil)
		m.evaluator.On("Evaluate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&domain.Evaluation{Correct: true, Method: domain.EvalMultipleChoice}, nil)
		m.attempts.On("MarkAnswered", mock.Anything, mock.Anything).Return(domain.ErrAttemptNotPending)

		_, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", "dog")

		assert.True(t, domain.HasCode(err, domain.CodeAlreadyAnswered))
		m.progress.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestQuizService_SubmitAnswer_Rejections(t *testing.T) {
	t.Run("empty answer", func(t *testing.T) {
		svc, m := newTestQuizService()
		_, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", "  ")
		assert.True(t, domain.HasCode(err, domain.CodeEmptyAnswer))
		m.attempts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("attempt of another user", func(t *testing.T) {
		svc, m := newTestQuizService()
		other := generatedAttempt()
		other.UserID = "user-2"
		m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(other, nil)

		_, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", "dog")

		assert.True(t, domain.HasCode(err, domain.CodeNotFound))
	})

	t.Run("progress failure rolls back", func(t *testing.T) {
		svc, m := newTestQuizService()
		m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(generatedAttempt(), nil)
		m.evaluator.On("Evaluate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&domain.Evaluation{Correct: true, Method: domain.EvalMultipleChoice}, nil)
		m.attempts.On("MarkAnswered", mock.Anything, mock.Anything).Return(nil)
		m.progress.On("Apply", mock.Anything, "rec-1", true, mock.Anything).
			Return(nil, domain.ProgressChange{}, domain.NewPersistenceError("failed to update learning record", errors.New("io")))

		_, err := svc.SubmitAnswer(context.Background(), "user-1", "attempt-1", "dog")

		assert.True(t, domain.HasCode(err, domain.CodePersistence))
	})
}

func TestQuizService_SkipQuestion_Idempotent(t *testing.T) {
	svc, m := newTestQuizService()
	skipped := generatedAttempt()
	skipped.Status = domain.AttemptSkipped

	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(generatedAttempt(), nil).Once()
	m.attempts.On("MarkSkipped", mock.Anything, "attempt-1", fixedNow()).Return(nil).Once()
	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(skipped, nil).Once()

	require.NoError(t, svc.SkipQuestion(context.Background(), "user-1", "attempt-1"))
	require.NoError(t, svc.SkipQuestion(context.Background(), "user-1", "attempt-1"))

	m.attempts.AssertNumberOfCalls(t, "MarkSkipped", 1)
	m.records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	m.progress.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuizService_SkipQuestion_AnsweredAttempt(t *testing.T) {
	svc, m := newTestQuizService()
	answered := generatedAttempt()
	answered.Status = domain.AttemptAnswered
	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(answered, nil)

	err := svc.SkipQuestion(context.Background(), "user-1", "attempt-1")

	assert.True(t, domain.HasCode(err, domain.CodeAlreadyAnswered))
}

func TestQuizService_SkipQuestion_LostRaceToSubmit(t *testing.T) {
	svc, m := newTestQuizService()
	answered := generatedAttempt()
	answered.Status = domain.AttemptAnswered
	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(generatedAttempt(), nil).Once()
	m.attempts.On("MarkSkipped", mock.Anything, "attempt-1", mock.AnythingOfType("time.Time")).Return(domain.ErrAttemptNotPending)
	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(answered, nil).Once()

	err := svc.SkipQuestion(context.Background(), "user-1", "attempt-1")

	assert.True(t, domain.HasCode(err, domain.CodeAlreadyAnswered))
}

func TestQuizService_SkipAndFetchNext(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()

	m.attempts.On("GetByID", mock.Anything, "attempt-1").Return(generatedAttempt(), nil)
	m.attempts.On("MarkSkipped", mock.Anything, "attempt-1", mock.AnythingOfType("time.Time")).Return(nil)
	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	m.trigger.On("Evaluate", mock.Anything, user, TriggerOptions{
		IgnoreThreshold:  true,
		ExcludePhraseIDs: []string{"phrase-1"},
	}).Return(domain.NoTrigger(domain.TriggerNoPhrasesDue), nil)

	resp, err := svc.SkipAndFetchNext(context.Background(), "user-1", "attempt-1")

	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, "no_phrases_due", resp.Reason)
	m.trigger.AssertExpectations(t)
}

// Five searches, a quiz, a correct answer: the end-to-end path through the engine.
func TestQuizService_SearchThresholdScenario(t *testing.T) {
	svc, m := newTestQuizService()
	user := testUser()
	record := dueRecord("rec-1", nil)
	record.PhraseID = "phrase-1"

	counter := 0
	m.users.On("IncrementSearchCounter", mock.Anything, "user-1").Return(func(context.Context, string) int {
		counter++
		return counter
	}, nil)
	m.phrases.On("GetByID", mock.Anything, "phrase-1").Return(testPhrase(), nil)
	m.records.On("GetByUserAndPhrase", mock.Anything, "user-1", "phrase-1").Return(record, nil)
	m.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	trigger := newTestTrigger(m.records)
	svc.Trigger = trigger
	m.records.On("FindDue", mock.Anything, mock.Anything).Return([]*domain.LearningRecord{record}, nil)

	var signals []bool
	for i := 0; i < 5; i++ {
		sig, err := svc.OnSearch(context.Background(), "user-1", "phrase-1", "")
		require.NoError(t, err)
		signals = append(signals, sig.ShouldQuiz)
	}
	assert.Equal(t, []bool{false, false, false, false, true}, signals)

	m.attempts.On("GetPending", mock.Anything, "rec-1").Return(nil, nil)
	m.translations.On("Translation", mock.Anything, mock.Anything, "en").Return(testTranslation(), nil)
	m.selector.On("Select", domain.StageBasic, mock.Anything).Return(domain.QuestionMultipleChoiceTarget, nil)
	m.generator.On("Generate", mock.Anything, mock.Anything).Return(mcPayload(), nil)
	var stored *domain.QuizAttempt
	m.attempts.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.QuizAttempt)
	}).Return(nil)
	m.users.On("ResetSearchCounter", mock.Anything, "user-1").Run(func(mock.Arguments) { counter = 0 }).Return(nil)

	user.SearchesSinceQuiz = 5
	resp, err := svc.FetchNextQuestion(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.True(t, resp.Available)
	assert.Equal(t, 0, counter)

	m.attempts.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	m.evaluator.On("Evaluate", mock.Anything, mock.Anything, "dog", mock.Anything).
		Return(&domain.Evaluation{Correct: true, MatchedAnswer: "dog", Method: domain.EvalMultipleChoice}, nil)
	m.attempts.On("MarkAnswered", mock.Anything, mock.Anything).Return(nil)
	m.progress.On("Apply", mock.Anything, "rec-1", true, mock.AnythingOfType("time.Time")).
		Return(record, domain.ProgressChange{PreviousStage: domain.StageBasic, NewStage: domain.StageBasic}, nil)

	result, err := svc.SubmitAnswer(context.Background(), "user-1", stored.ID, "dog")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, time.Duration(0), fixedNow().Sub(*stored.AnsweredAt))
}
