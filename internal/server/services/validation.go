package services

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/postboard/internal/common"
)

// FieldError names a rejected input field and the reason code.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field problem found in a request. It matches
// common.ErrorValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("validation error: %s", strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

type validator struct {
	fields []FieldError
}

func (v *validator) add(field, reason string) {
	v.fields = append(v.fields, FieldError{Field: field, Reason: reason})
}

func (v *validator) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0 && min > 0:
		v.add(field, "blank")
	case n < min:
		v.add(field, "too_short")
	case max > 0 && n > max:
		v.add(field, "too_long")
	}
}

func (v *validator) email(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "blank")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.add(field, "invalid")
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	sort.SliceStable(v.fields, func(i, j int) bool { return v.fields[i].Field < v.fields[j].Field })
	return &ValidationError{Fields: v.fields}
}
