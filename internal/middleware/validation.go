package middleware

import (
	"strconv"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/dto"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	PaginationKey   = "pagination"
	defaultPageSize = 20
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware(v *validation.Validator) *ValidationMiddleware {
	return &ValidationMiddleware{validator: v}
}

// Pagination parses limit and offset (defaults 20 and 0) and stores a dto.Pagination local.
func (vm *ValidationMiddleware) Pagination() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := queryInt(c, "limit", defaultPageSize)
		if err != nil {
			return err
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil {
			return err
		}
		if err := vm.validator.ValidatePagination(limit, offset); err != nil {
			return err
		}
		c.Locals(PaginationKey, dto.Pagination{Limit: limit, Offset: offset})
		return c.Next()
	}
}

// ValidateParamID checks that the named path parameter is a ULID.
func (vm *ValidationMiddleware) ValidateParamID(param, field string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := vm.validator.ValidateID(field, c.Params(param)); err != nil {
			return err
		}
		return c.Next()
	}
}

// PaginationFrom returns the parsed window, or the default one when the middleware did not run.
func PaginationFrom(c *fiber.Ctx) dto.Pagination {
	if p, ok := c.Locals(PaginationKey).(dto.Pagination); ok {
		return p
	}
	return dto.Pagination{Limit: defaultPageSize}
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationErrors{domain.NewInvalidFormatError(key, raw)}
	}
	return n, nil
}
