package handler

import (
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/service"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service   service.QuizService
	validator *validation.Validator
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService, validator *validation.Validator) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validator,
	}
}

// NextQuestion godoc
// @Summary Get the next quiz question
// @Description Generates a question for the given phrase, or for the most overdue phrase when phrase_id is omitted.
// @Tags quiz
// @Security ApiKeyAuth
// @Produce json
// @Param phrase_id query string false "Phrase ID (ULID)"
// @Success 200 {object} dto.NextQuestionResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /quiz/next [get]
func (h *QuizHandler) NextQuestion(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	phraseID := c.Query("phrase_id")
	if phraseID != "" {
		if err := h.validator.ValidateID("phrase_id", phraseID); err != nil {
			return err
		}
	}

	resp, err := h.service.FetchNextQuestion(c.Context(), userID, phraseID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// SubmitAnswer godoc
// @Summary Answer a quiz question
// @Description Evaluates the answer and advances or holds the phrase's learning stage.
// @Tags quiz
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID (ULID)"
// @Param request body dto.SubmitAnswerRequest true "Answer"
// @Success 200 {object} dto.AnswerResultResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Already answered or skipped"
// @Router /quiz/attempts/{attemptId}/answer [post]
func (h *QuizHandler) SubmitAnswer(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	attemptID := c.Params("attemptId")
	var req dto.SubmitAnswerRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	result, err := h.service.SubmitAnswer(c.Context(), userID, attemptID, req.Answer)
	if err != nil {
		return err
	}
	logger.Get().Info("Quiz answer evaluated",
		zap.String("user_id", userID),
		zap.String("attempt_id", attemptID),
		zap.Bool("correct", result.Correct),
		zap.String("method", result.EvaluationMethod))
	return c.JSON(result)
}

// SkipQuestion godoc
// @Summary Skip a quiz question
// @Description Marks the attempt skipped without changing learning progress, then returns the next question unless fetch_next=false.
// @Tags quiz
// @Security ApiKeyAuth
// @Produce json
// @Param attemptId path string true "Attempt ID (ULID)"
// @Param fetch_next query bool false "Return the next question (default true)"
// @Success 200 {object} dto.NextQuestionResponse
// @Success 204 "Skipped"
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Already answered"
// @Router /quiz/attempts/{attemptId}/skip [post]
func (h *QuizHandler) SkipQuestion(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	attemptID := c.Params("attemptId")

	if !c.QueryBool("fetch_next", true) {
		if err := h.service.SkipQuestion(c.Context(), userID, attemptID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}

	resp, err := h.service.SkipAndFetchNext(c.Context(), userID, attemptID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
