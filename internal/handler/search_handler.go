package handler

import (
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/service"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SearchHandler serves phrase lookups.
type SearchHandler struct {
	service   service.SearchService
	validator *validation.Validator
}

func NewSearchHandler(service service.SearchService, validator *validation.Validator) *SearchHandler {
	return &SearchHandler{service: service, validator: validator}
}

// Search godoc
// @Summary Translate a phrase
// @Description Translates a phrase, records the search and reports whether a quiz is owed.
// @Tags search
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param request body dto.SearchRequest true "Phrase to translate"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse "Translator unavailable"
// @Router /search [post]
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.SearchRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	resp, err := h.service.Search(c.Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
