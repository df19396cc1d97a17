package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/demandflow/errors"
)

// FieldError names one failing field by its dotted config path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	once     sync.Once
	instance *validator.Validate
)

// engine reports fields under their mapstructure (or json) names so messages
// match the keys in the config file or the record format.
func engine() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"mapstructure", "json"} {
				if name, _, _ := strings.Cut(f.Tag.Get(key), ","); name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(f.Name)
		})
	})
	return instance
}

// Validate checks a configuration struct against its validate tags. The
// INVALID_CONFIG error it returns lists every failing field.
func Validate(s any) error {
	return check(s, errors.ErrCodeInvalidConfig)
}

// ValidateRecord is Validate for decoded records, failing with INVALID_RECORD.
func ValidateRecord(s any) error {
	return check(s, errors.ErrCodeInvalidRecord)
}

func check(s any, code errors.ErrorCode) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var failures validator.ValidationErrors
	if !stderrors.As(err, &failures) {
		return errors.New(code, "validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failures))
	lines := make([]string, len(failures))
	for i, f := range failures {
		fields[i] = FieldError{Field: fieldPath(f), Message: describe(f)}
		lines[i] = fields[i].Field + ": " + fields[i].Message
	}
	return errors.New(code, strings.Join(lines, "; ")).WithDetail("fields", fields)
}

// fieldPath drops the root type name: "Config.pipeline.workers" becomes
// "pipeline.workers".
func fieldPath(f validator.FieldError) string {
	_, rest, found := strings.Cut(f.Namespace(), ".")
	if !found {
		return f.Namespace()
	}
	return rest
}

// messages maps a tag to its message; %s is replaced by the tag parameter.
var messages = map[string]string{
	"required":      "is required",
	"required_if":   "is required when %s",
	"required_with": "must be set together with %s",
	"min":           "must be at least %s",
	"max":           "must be at most %s",
	"gt":            "must be greater than %s",
	"gte":           "must be greater than or equal to %s",
	"lte":           "must be less than or equal to %s",
	"oneof":         "must be one of: %s",
	"ltfield":       "must be less than %s",
	"ltefield":      "must not exceed %s",
	"gtefield":      "must be at least %s",
	"url":           "must be a valid URL",
	"hostname_port": "must be host:port",
}

func describe(f validator.FieldError) string {
	msg, ok := messages[f.Tag()]
	if !ok {
		return "is invalid"
	}
	param := f.Param()
	if strings.HasSuffix(f.Tag(), "field") || f.Tag() == "required_with" {
		param = toSnakeCase(param)
	}
	return strings.Replace(msg, "%s", param, 1)
}

// toSnakeCase lowers a Go field name, putting an underscore before every
// upper-case letter after the first.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
