package handler

import (
	"lingo-quiz/internal/middleware"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles the route handlers registered under /api.
type Handlers struct {
	Auth   *AuthHandler
	Search *SearchHandler
	Quiz   *QuizHandler
	User   *UserHandler
}

// RegisterRoutes mounts the API. Everything except the auth endpoints requires an access token.
func RegisterRoutes(app *fiber.App, tokens middleware.TokenValidator, v *validation.Validator, h Handlers) {
	protected := middleware.Protected(tokens)
	vm := middleware.NewValidationMiddleware(v)
	attemptID := vm.ValidateParamID("attemptId", "attempt_id")

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Get("/google/login", h.Auth.GoogleLogin)
	auth.Get("/google/callback", h.Auth.GoogleCallback)
	auth.Post("/refresh", h.Auth.RefreshToken)

	api.Post("/search", protected, h.Search.Search)

	quiz := api.Group("/quiz", protected)
	quiz.Get("/next", h.Quiz.NextQuestion)
	quiz.Post("/attempts/:attemptId/answer", attemptID, h.Quiz.SubmitAnswer)
	quiz.Post("/attempts/:attemptId/skip", attemptID, h.Quiz.SkipQuestion)

	users := api.Group("/users", protected)
	users.Get("/me", h.User.GetMyProfile)
	users.Put("/me/preferences", h.User.UpdateMyPreferences)
	users.Get("/me/progress", vm.Pagination(), h.User.GetMyProgress)
	users.Get("/me/attempts", vm.Pagination(), h.User.GetMyAttempts)
}
