package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError describes one field that failed validation. Field holds
// the wire name (form tag, then json tag), not the Go struct field.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (v ValidationError) String() string {
	rule := v.Tag
	if v.Param != "" {
		rule += "=" + v.Param
	}
	return v.Field + " failed on " + rule
}

// ValidationErrors collects every failing field of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, failure := range v {
		parts[i] = failure.String()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the registered rules against s, translating library
// errors into ValidationErrors so handlers can render them directly.
func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	failures := make(ValidationErrors, len(ve))
	for i, fe := range ve {
		failures[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return failures
}

// RegisterValidation adds a custom rule under the given tag.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(wireName)
	})
	return validate
}

// wireName resolves the name a field travels under. Query binding reads
// the form tag, so it wins over json; tags of "-" fall back to the Go name.
func wireName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := fld.Tag.Get(tag)
		if idx := strings.Index(name, ","); idx != -1 {
			name = name[:idx]
		}
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}
