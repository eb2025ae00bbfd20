package handler

import (
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/middleware"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// currentUserID reads the user set by middleware.Protected.
func currentUserID(c *fiber.Ctx) (string, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logger.Get().Warn("User ID not found in context", zap.String("path", c.Path()))
		return "", domain.NewUnauthorizedError("user ID not found in context")
	}
	return userID, nil
}

// parseBody decodes the JSON body into req and validates its tags.
func parseBody(c *fiber.Ctx, v *validation.Validator, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		logger.Get().Warn("Failed to parse request body", zap.String("path", c.Path()), zap.Error(err))
		return domain.NewInvalidInputError("invalid request body")
	}
	return v.Struct(req)
}
