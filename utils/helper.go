package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const PeriodLayout = "2006-01"

var validate = validator.New()

// Validate runs the struct tag validation shared by the loader packages.
func Validate(s any) error {
	return validate.Struct(s)
}

// ProcessValidationErrors flattens validator errors into field -> tag.
func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		if err != nil {
			errorResponse["_"] = err.Error()
		}
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// MonthStart truncates t to the first day of its calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParsePeriod accepts "YYYY-MM" (or "YYYY-MM-DD", truncated to the month).
func ParsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("period is empty")
	}
	if t, err := time.Parse(PeriodLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q (want YYYY-MM)", s)
	}
	return MonthStart(t), nil
}

// PeriodRange returns n consecutive month starts beginning at start.
func PeriodRange(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	first := MonthStart(start)
	periods := make([]time.Time, n)
	for i := range periods {
		periods[i] = first.AddDate(0, i, 0)
	}
	return periods
}

func FormatPeriod(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}
