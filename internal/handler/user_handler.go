package handler

import (
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/middleware"
	"lingo-quiz/internal/service"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService service.UserService
	validator   *validation.Validator
}

func NewUserHandler(userService service.UserService, validator *validation.Validator) *UserHandler {
	return &UserHandler{userService: userService, validator: validator}
}

// GetMyProfile retrieves the profile of the currently authenticated user.
// @Summary Get My Profile
// @Description Retrieves the profile and learning preferences of the logged-in user.
// @Tags users
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} dto.UserProfileResponse
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /users/me [get]
func (h *UserHandler) GetMyProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	profile, err := h.userService.GetUserProfile(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// UpdateMyPreferences changes the learning preferences of the logged-in user.
// @Summary Update My Preferences
// @Description Updates native language, translator languages, quiz frequency and disabled advanced question types. Omitted fields are unchanged.
// @Tags users
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdatePreferencesRequest true "Preferences"
// @Success 200 {object} dto.UserProfileResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Router /users/me/preferences [put]
func (h *UserHandler) UpdateMyPreferences(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePreferencesRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}
	profile, err := h.userService.UpdatePreferences(c.Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

// GetMyProgress lists the learning records of the logged-in user.
// @Summary Get My Progress
// @Description Lists learning records, optionally filtered by stage, with per-stage totals.
// @Tags users
// @Security ApiKeyAuth
// @Produce json
// @Param stage query string false "basic, intermediate, advanced or mastered"
// @Param limit query int false "Page size (1-100, default 20)"
// @Param offset query int false "Offset (default 0)"
// @Success 200 {object} dto.ProgressResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid stage or pagination"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Router /users/me/progress [get]
func (h *UserHandler) GetMyProgress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	resp, err := h.userService.GetProgress(c.Context(), userID, c.Query("stage"), middleware.PaginationFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetMyAttempts retrieves the quiz attempts of the currently authenticated user.
// @Summary Get My Quiz Attempts
// @Description Retrieves a paginated list of quiz attempts, newest first.
// @Tags users
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Page size (1-100, default 20)"
// @Param offset query int false "Offset (default 0)"
// @Success 200 {object} dto.QuizAttemptsResponse
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /users/me/attempts [get]
func (h *UserHandler) GetMyAttempts(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	pagination := middleware.PaginationFrom(c)
	attempts, err := h.userService.GetUserQuizAttempts(c.Context(), userID, pagination)
	if err != nil {
		return err
	}
	logger.Get().Debug("User quiz attempts retrieved",
		zap.String("user_id", userID),
		zap.Int("count", len(attempts.Attempts)))
	return c.JSON(attempts)
}
