package validation

import (
	"errors"
	"reflect"
	"strings"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/util"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

const (
	maxLanguageTagLength = 35
	maxPageLimit         = 100
)

// Validator checks request DTOs against their `validate` tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the langcode, ulid and questiontype tags registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return IsLanguageCode(fl.Field().String())
	})
	_ = v.RegisterValidation("ulid", func(fl validator.FieldLevel) bool {
		return util.IsULID(fl.Field().String())
	})
	_ = v.RegisterValidation("questiontype", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseQuestionType(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// Struct validates s and returns nil or domain.ValidationErrors.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewInternalError("validation failed", err)
	}

	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toValidationError(fe))
	}
	return out
}

// ValidateID checks a path or query identifier.
func (v *Validator) ValidateID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError(field)}
	}
	if !util.IsULID(value) {
		return domain.ValidationErrors{domain.NewInvalidFormatError(field, value)}
	}
	return nil
}

// ValidatePagination bounds limit to 1..100 and offset to >= 0.
func (v *Validator) ValidatePagination(limit, offset int) error {
	var verrs domain.ValidationErrors
	if limit < 1 || limit > maxPageLimit {
		verrs = append(verrs, domain.NewOutOfRangeError("limit", limit, 1, maxPageLimit))
	}
	if offset < 0 {
		verrs = append(verrs, domain.NewInvalidFormatError("offset", offset))
	}
	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

// IsLanguageCode accepts well-formed BCP 47 tags such as "de", "en-US" or "zh-Hant".
func IsLanguageCode(s string) bool {
	if s == "" || len(s) > maxLanguageTagLength {
		return false
	}
	tag, err := language.Parse(s)
	return err == nil && tag != language.Und
}

func toValidationError(fe validator.FieldError) domain.ValidationError {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return domain.NewMissingFieldError(field)
	case "min", "gte":
		if fe.Kind() == reflect.Int {
			return outOfRange(field, fe.Value(), "value must be at least "+fe.Param())
		}
	case "max", "lte":
		if fe.Kind() == reflect.Int {
			return outOfRange(field, fe.Value(), "value must be at most "+fe.Param())
		}
	}
	return domain.NewInvalidFormatError(field, fe.Value())
}

func outOfRange(field string, value interface{}, msg string) domain.ValidationError {
	return domain.ValidationError{Field: field, Code: domain.CodeOutOfRange, Message: msg, Value: value}
}

// fieldPath drops the struct name from "SearchRequest.source_language".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
