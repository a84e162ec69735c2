package ledger

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("ledger: validation failed")

// ValidationError carries the first violated rule of a draft.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets callers match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func rules() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("posdec", func(fl validator.FieldLevel) bool {
			d, ok := parseDecimal(fl.Field().String())
			return ok && d.IsPositive()
		})
		_ = v.RegisterValidation("nonnegdec", func(fl validator.FieldLevel) bool {
			raw := strings.TrimSpace(fl.Field().String())
			if raw == "" {
				return true
			}
			d, ok := parseDecimal(raw)
			return ok && !d.IsNegative()
		})
		validate = v
	})
	return validate
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Validate checks a draft against the schema rules and returns the first violation.
func Validate(s *Schema, draft map[string]string) error {
	v := rules()
	for _, rule := range s.Rules {
		value := strings.TrimSpace(draft[rule.Field])
		if err := v.Var(value, rule.Tag); err != nil {
			return &ValidationError{Field: rule.Field, Message: rule.Message}
		}
	}
	return nil
}
