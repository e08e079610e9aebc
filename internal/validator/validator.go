package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MaxHostnameLength is the longest hostname the kernel accepts
const MaxHostnameLength = 64

var (
	once     sync.Once
	validate *validator.Validate

	datetimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)
	labelPattern    = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
)

// Validator represents a validator instance
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	once.Do(func() {
		validate = validator.New()

		// Register custom validation functions
		_ = validate.RegisterValidation("syshostname", validateHostname)
		_ = validate.RegisterValidation("sysdatetime", validateDatetime)

		// Use JSON tag names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return &Validator{
		validate: validate,
	}
}

// Struct validates a struct
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return fmt.Errorf("invalid validation error: %w", err)
		}

		var errMsgs []string
		for _, err := range err.(validator.ValidationErrors) {
			errMsgs = append(errMsgs, formatError(err))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}

// Var validates a single variable
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// Engine returns the underlying validator engine
func (v *Validator) Engine() any {
	return v.validate
}

// IsHostname reports whether s is an RFC 1123 hostname the kernel accepts
func IsHostname(s string) bool {
	if s == "" || len(s) > MaxHostnameLength {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !labelPattern.MatchString(label) {
			return false
		}
	}
	return true
}

// IsDatetime reports whether s has the YYYY-MM-DDThh:mm:ssZ form
func IsDatetime(s string) bool {
	return datetimePattern.MatchString(s)
}

// formatError formats a validation error
func formatError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, err.Param())
	case "syshostname":
		return fmt.Sprintf("%s must be a valid hostname", field)
	case "sysdatetime":
		return fmt.Sprintf("%s must be a datetime of the form YYYY-MM-DDThh:mm:ssZ", field)
	default:
		return fmt.Sprintf("%s failed on tag %s", field, err.Tag())
	}
}

func validateHostname(fl validator.FieldLevel) bool {
	return IsHostname(fl.Field().String())
}

func validateDatetime(fl validator.FieldLevel) bool {
	return IsDatetime(fl.Field().String())
}
