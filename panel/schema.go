// Package panel implements the admin console: one generic CRUD panel per
// collection, driven by a field schema, instantiated for news, events, teams,
// drivers and constructors.
package panel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"motorsporthub/gateway"
)

const dateLayout = "2006-01-02"

type FieldKind int

const (
	Text FieldKind = iota
	LongText
	Date
	Number
)

// Input is the HTML input type used for the field.
func (k FieldKind) Input() string {
	switch k {
	case Date:
		return "date"
	case Number:
		return "number"
	default:
		return "text"
	}
}

func (k FieldKind) Multiline() bool {
	return k == LongText
}

type Field struct {
	Name  string
	Label string
	Kind  FieldKind
	// Min is the lowest accepted value of a Number field, when set.
	Min *int
}

// Form is the submitted values of one new record, keyed by field name.
type Form map[string]string

// Value returns the trimmed value of field name.
func (f Form) Value(name string) string {
	return strings.TrimSpace(f[name])
}

func (f Form) clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Schema describes one collection's panel.
type Schema struct {
	Collection string
	Title      string
	// Noun names one record in notices: "Error adding <noun>", "<Noun> added!".
	Noun           string
	Fields         []Field
	Attachment     bool
	Order          gateway.Order
	Limit          int
	MissingMessage string
}

// Singular is the capitalized noun, as on the add button.
func (s *Schema) Singular() string {
	return strings.ToUpper(s.Noun[:1]) + s.Noun[1:]
}

func (s *Schema) AddedMessage() string {
	return s.Singular() + " added!"
}

func (s *Schema) Query() gateway.Query {
	return gateway.Query{Order: s.Order, Limit: s.Limit}
}

// ValidationError is a form rejected before any gateway call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// Validate checks the form as a unit and converts it into a record to insert.
// Every field is required; a value of only spaces counts as missing.
func (s *Schema) Validate(f Form) (gateway.Record, error) {
	for _, field := range s.Fields {
		if f.Value(field.Name) == "" {
			return nil, &ValidationError{Field: field.Name, Message: s.MissingMessage}
		}
	}

	rec := make(gateway.Record, len(s.Fields)+1)
	for _, field := range s.Fields {
		v := f.Value(field.Name)
		switch field.Kind {
		case Number:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, &ValidationError{Field: field.Name, Message: fmt.Sprintf("%s must be a whole number", field.Label)}
			}
			if field.Min != nil && n < *field.Min {
				return nil, &ValidationError{Field: field.Name, Message: fmt.Sprintf("%s must be at least %d", field.Label, *field.Min)}
			}
			rec[field.Name] = n
		case Date:
			d, err := time.Parse(dateLayout, v)
			if err != nil {
				return nil, &ValidationError{Field: field.Name, Message: fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field.Label)}
			}
			rec[field.Name] = d
		default:
			rec[field.Name] = v
		}
	}
	return rec, nil
}
