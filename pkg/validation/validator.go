package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Init installs the catalog rules on gin's binding validator.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register applies the project rules to v. Exposed for tests that build
// their own validator.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("pwd", "min=8")
	v.RegisterAlias("phone", "max=20") // free-form, only bounded
	_ = v.RegisterValidation("isbn_loose", func(fl validator.FieldLevel) bool {
		return ValidISBN(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

var shared = func() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}()

// Var checks a single value against tag outside of request binding, e.g.
// Var(email, "email,max=255") in a service.
func Var(value any, tag string) error {
	return shared.Var(value, tag)
}

// NormalizeISBN strips hyphens and spaces.
func NormalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(isbn)
}

// ValidISBN accepts 13 digits, or 10 characters where the last may be X.
func ValidISBN(isbn string) bool {
	s := NormalizeISBN(isbn)
	switch len(s) {
	case 13:
		return allDigits(s)
	case 10:
		last := s[9]
		return allDigits(s[:9]) && (last == 'X' || last == 'x' || (last >= '0' && last <= '9'))
	default:
		return false
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ToDetails turns a binding error into field -> message pairs for the
// error section of the response envelope. Keys use the json (or form) name.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = message(fe)
		}
		return out
	case errors.As(err, &typ):
		field := typ.Field
		if field == "" {
			field = "payload"
		}
		return map[string]string{field: "must be of type " + typ.Type.String()}
	case errors.As(err, &syntax), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return map[string]string{"payload": "invalid json"}
	default:
		return map[string]string{"payload": "invalid payload"}
	}
}

// fixed messages per tag; tags with a parameter are handled in message
var messages = map[string]string{
	"required":   "is required",
	"email":      "must be a valid email",
	"uuid":       "must be a valid UUID",
	"uuid4":      "must be a valid UUID",
	"url":        "must be a valid URL",
	"isbn_loose": "must be a 10 or 13 character ISBN",
	"notblank":   "must not be blank",
	"pwd":        "must be at least 8 characters long",
	"phone":      "must be at most 20 characters long",
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Tag()]; ok {
		return m
	}
	p := fe.Param()
	unit := ""
	if !numeric(fe.Kind()) {
		unit = " characters long"
	}
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(p), ", ")
	case "len":
		return "must be exactly " + p + unit
	case "min", "gte":
		return "must be at least " + p + unit
	case "max", "lte":
		return "must be at most " + p + unit
	case "required_without":
		return "is required when " + p + " is not present"
	}
	if p != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), p)
	}
	return "failed " + fe.Tag()
}

func numeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}
