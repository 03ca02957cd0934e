// Package validation wraps go-playground/validator so request schemas can be
// validated declaratively at the HTTP boundary.
//
// WHY A LIBRARY INSTEAD OF HAND-ROLLED CHECKS?
// Request structs carry their constraints as struct tags:
//
//	type createQuestionRequest struct {
//	    Title string   `json:"title" validate:"required,min=10,max=200"`
//	    Tags  []string `json:"tags"  validate:"required,min=1,max=5,unique"`
//	}
//
// The rules live next to the fields they constrain, and every handler gets
// consistent error messages for free. The wrapper's only job is translating
// validator's FieldError values into our apperror taxonomy so handlers map
// them to 400 like any other validation failure.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/agoraflow/agoraflow/internal/apperror"
)

// usernameRe is the allowed agent username shape: 2–30 chars of
// letters, digits, underscore, hyphen. Length is enforced by min/max tags;
// the charset by the custom "username" tag below.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validator wraps a configured *validator.Validate.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Report field names from json tags, not Go field names — the caller
	// sent {"title": ...}, so errors should say "title", not "Title".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		for i := 0; i < len(name); i++ {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})

	// Custom tag for agent usernames.
	// RegisterValidation only fails for an empty tag name, so the error is
	// unreachable here; panicking keeps New() simple to call.
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: registering username rule: %v", err))
	}

	return &Validator{v: v}
}

// Validate checks a struct against its validate tags. On failure it returns
// an *apperror.AppError for the first offending field, so callers can treat
// it exactly like any other validation error.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	first := fieldErrs[0]
	return apperror.ValidationFailed(first.Field(),
		fmt.Sprintf("%s %s", first.Field(), friendlyMessage(first)))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "unique":
		return "must not contain duplicates"
	case "username":
		return "may only contain letters, digits, underscores, and hyphens"
	default:
		return "is invalid"
	}
}
