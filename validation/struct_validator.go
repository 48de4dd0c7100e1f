package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/util"
)

// AutoLanguage asks the service to detect the spoken language.
const AutoLanguage = "auto"

// sentinelLanguages are placeholder values a caller can leak from an unset
// selection. They are never valid language codes.
var sentinelLanguages = []string{"undefined", "null"}

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				name = strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			}
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})

		_ = validate.RegisterValidation("language_code", func(fl validator.FieldLevel) bool {
			return IsLanguageCode(fl.Field().String())
		})
		_ = validate.RegisterValidation("script", func(fl validator.FieldLevel) bool {
			return IsScript(fl.Field().String())
		})
		_ = validate.RegisterValidation("size", func(fl validator.FieldLevel) bool {
			_, err := util.ParseSize(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// IsSentinelLanguage reports whether code is empty or a placeholder value.
func IsSentinelLanguage(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return true
	}
	for _, s := range sentinelLanguages {
		if strings.EqualFold(code, s) {
			return true
		}
	}
	return false
}

// IsLanguageCode reports whether code is "auto" or a well-formed BCP 47 tag.
// Well-formed tags with subtags unknown to the local registry are accepted;
// the service has the final word on what it supports.
func IsLanguageCode(code string) bool {
	if IsSentinelLanguage(code) {
		return false
	}
	if code == AutoLanguage {
		return true
	}
	_, err := language.Parse(code)
	if err == nil {
		return true
	}
	var ve language.ValueError
	return stderrors.As(err, &ve)
}

// IsScript reports whether s is an ISO 15924 script code such as "Latn".
func IsScript(s string) bool {
	if len(s) != 4 {
		return false
	}
	_, err := language.ParseScript(s)
	return err == nil
}

// Validate validates a struct using struct tags and returns a BadRequest
// AppError listing every failing field.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.Validation("validation failed").WithCause(err)
	}

	v := New()
	for _, e := range validationErrors {
		v.AddError(fieldPath(e), formatValidationError(e))
	}
	return v.Validate()
}

// fieldPath returns the dotted tag-name path without the root struct name.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	numeric := false
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		if numeric {
			return "must be at least " + e.Param()
		}
		return "must be at least " + e.Param() + " characters"
	case "max", "lte":
		if numeric {
			return "must be at most " + e.Param()
		}
		return "must be at most " + e.Param() + " characters"
	case "gt":
		return "must be greater than " + e.Param()
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "language_code":
		return "must be a language code or \"auto\""
	case "script":
		return "must be an ISO 15924 script code"
	case "size":
		return "must be a size such as 4MB"
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
