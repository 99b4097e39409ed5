package core

// validation.go checks candidates and single-record payloads before they
// reach the store.
//
// Bulk rows are partitioned: a row with any problem is rejected with its line
// number and reason, the rest are accepted in input order. Single records
// from the JSON API are checked with struct tags and fail as a whole.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/records/internal/domain"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name as it appears in the payload
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RowError reports a rejected spreadsheet row.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BatchValidation is the accepted/rejected partition of a batch.
type BatchValidation struct {
	Accepted []domain.Record
	Rejected []RowError
}

const (
	msgRequired = "required field is empty"
	msgNoFields = "row has no usable fields"
)

var levelChoices = func() string {
	names := make([]string, len(domain.Levels))
	for i, l := range domain.Levels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}()

// ValidateBatch partitions candidates. Accepted records keep input order.
func ValidateBatch(candidates []Candidate) BatchValidation {
	var out BatchValidation
	for _, c := range candidates {
		errs := ValidateCandidate(c)
		if len(errs) == 0 {
			out.Accepted = append(out.Accepted, c.Record())
			continue
		}
		out.Rejected = append(out.Rejected, RowError{Row: c.Row, Reason: joinValidationErrors(errs)})
	}
	return out
}

// ValidateCandidate returns every problem with c, or nil.
func ValidateCandidate(c Candidate) []ValidationError {
	if c.Empty {
		return []ValidationError{{Message: msgNoFields}}
	}

	var errs []ValidationError
	for _, f := range []struct{ field, value string }{
		{"name", c.Name},
		{"position", c.Position},
		{"level", c.Level},
	} {
		if f.value == "" {
			errs = append(errs, ValidationError{Field: f.field, Message: msgRequired})
		}
	}

	if c.Level != "" && !domain.Level(c.Level).Valid() {
		errs = append(errs, invalidLevel(c.Level))
	}
	return errs
}

func invalidLevel(v string) ValidationError {
	return ValidationError{
		Field:   "level",
		Value:   v,
		Message: fmt.Sprintf("invalid level %q, must be one of %s", v, levelChoices),
	}
}

func joinValidationErrors(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// RecordInput is the JSON payload for creating or replacing a record.
type RecordInput struct {
	Name     string `json:"name" validate:"required"`
	Position string `json:"position" validate:"required"`
	Level    string `json:"level" validate:"required,oneof=Intern Junior Senior"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims every field and canonicalises a recognised level.
func (in RecordInput) Normalize() RecordInput {
	in.Name = CleanCell(in.Name)
	in.Position = CleanCell(in.Position)
	in.Level = CleanCell(in.Level)
	if l, ok := domain.ParseLevel(in.Level); ok {
		in.Level = string(l)
	}
	return in
}

// Validate normalizes in and checks it, returning the record on success or an
// ErrValidation error listing every problem.
func (in RecordInput) Validate() (domain.Record, error) {
	in = in.Normalize()

	err := validate.Struct(in)
	if err == nil {
		return domain.Record{Name: in.Name, Position: in.Position, Level: domain.Level(in.Level)}, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Record{}, Wrap(ErrValidation, err, "validate record")
	}

	errs := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs = append(errs, ValidationError{Field: fe.Field(), Message: msgRequired})
		case "oneof":
			errs = append(errs, invalidLevel(fmt.Sprint(fe.Value())))
		default:
			errs = append(errs, ValidationError{Field: fe.Field(), Value: fmt.Sprint(fe.Value()), Message: "failed " + fe.Tag()})
		}
	}
	return domain.Record{}, Errorf(ErrValidation, "%s", joinValidationErrors(errs))
}
