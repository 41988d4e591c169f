// Package form turns submitted form values into typed input plus per-field errors.
package form

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NonFieldErrors is the Errors key for problems that belong to the form as a whole.
const NonFieldErrors = "__all__"

// Errors maps a form field name to its messages. Empty means valid.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Validator wraps validator.Validate with form-tag field names and the
// custom tags used across the service.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	// maxbytes bounds the encoded length, not the rune count.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return &Validator{validate: v}
}

// Struct validates s and returns every failing field as a message.
func (v *Validator) Struct(s interface{}) Errors {
	errs := Errors{}
	err := v.validate.Struct(s)
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs.Add(NonFieldErrors, err.Error())
		return errs
	}
	for _, fe := range validationErrors {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Ensure this value is at most %s bytes long.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", fe.Value())
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}

// Values returns the trimmed first value of each named field, for echoing back.
func Values(values url.Values, fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = strings.TrimSpace(values.Get(f))
	}
	return out
}

// View is the JSON model of a rendered form.
type View struct {
	Form      map[string]string `json:"form"`
	Errors    Errors            `json:"errors"`
	Notice    string            `json:"notice,omitempty"`
	CSRFToken string            `json:"csrfToken,omitempty"`
	Editable  bool              `json:"editable"`
}
