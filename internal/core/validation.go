package core

// validation.go checks requests before any data is read.
//
// Struct rules live in validate tags on the request types; this file turns
// validator's field errors into a single ValidationError whose message names
// every failing field, so one round trip reports every problem.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names, which are what callers sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// RunDate is checked as the time it wraps so required sees a zero date.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(RunDate); ok {
			return d.Time
		}
		return nil
	}, RunDate{})
	return v
}

// ValidateStruct applies validate tags to v and returns a ValidationError
// listing every failing field.
func ValidateStruct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationError(op, "invalid request", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return ValidationError(op, strings.Join(msgs, "; "), nil)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch {
	case field == "student_ids" && (fe.Tag() == "required" || fe.Tag() == "min"):
		return "student list is empty"
	case strings.HasPrefix(field, "student_ids["):
		return fmt.Sprintf("%s must be a non-empty identifier of at most 64 characters", field)
	case field == "format":
		return "format must be pdf or excel"
	case fe.Tag() == "required":
		return field + " is required"
	case fe.Tag() == "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case fe.Tag() == "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// NormalizeRequest trims identifiers and fills defaults in place.
func NormalizeRequest(req *ReportRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.TrimSpace(req.Type)
	req.Format = Format(strings.ToLower(strings.TrimSpace(string(req.Format))))
	req.Mode = PackagingMode(strings.ToLower(strings.TrimSpace(string(req.Mode))))
	for i, id := range req.StudentIDs {
		req.StudentIDs[i] = strings.TrimSpace(id)
	}
	if req.Type == "" {
		req.Type = "academic"
	}
	if req.Format == FormatPDF && req.Mode == "" {
		req.Mode = ModeCombined
	}
}

// ValidateRequest checks a normalized request. maxStudents <= 0 means no cap.
func ValidateRequest(req ReportRequest, maxStudents int) error {
	if err := ValidateStruct("validate request", req); err != nil {
		return err
	}
	if maxStudents > 0 && len(req.StudentIDs) > maxStudents {
		return ValidationError("validate request",
			fmt.Sprintf("too many students: %d exceeds the limit of %d", len(req.StudentIDs), maxStudents), nil)
	}
	return nil
}
