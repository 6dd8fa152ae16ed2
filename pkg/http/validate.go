package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	validate = newValidator()

	setsMu sync.RWMutex
	sets   = map[string][]string{}
)

// newValidator reports fields by their json/query name so messages match what clients sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "param", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// RegisterSet adds a validation tag that accepts only the given values. Registering the
// same tag again replaces its values.
func RegisterSet(tag string, allowed []string) error {
	setsMu.Lock()
	_, exists := sets[tag]
	sets[tag] = append([]string(nil), allowed...)
	setsMu.Unlock()
	if exists {
		return nil
	}
	return validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		setsMu.RLock()
		defer setsMu.RUnlock()
		v := fl.Field().String()
		for _, a := range sets[tag] {
			if a == v {
				return true
			}
		}
		return false
	})
}

// ReadAndValidateRequest binds path, query and body into req, applies `default` tags and validates.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := defaults.Set(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validatorDefaultRules(err)
	}
	return nil
}

func validatorDefaultRules(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make([]ValidationError, 0, len(validationErrors))
		for _, e := range validationErrors {
			errs = append(errs, ValidationError{
				Code:    "ERR_" + strings.ToUpper(e.Tag()),
				Field:   e.Field(),
				Message: getErrorMessage(e),
				Params:  getErrorParams(e),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{
			Code:    "ERR_BIND",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []ValidationError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}

func getErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	}

	setsMu.RLock()
	allowed, ok := sets[fe.Tag()]
	setsMu.RUnlock()
	if ok {
		return fmt.Sprintf("%s has unknown value %q, expected one of: %s", field, fe.Value(), strings.Join(allowed, ", "))
	}
	return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
}

func getErrorParams(fe validator.FieldError) map[string]interface{} {
	params := make(map[string]interface{})

	switch fe.Tag() {
	case "gte":
		params["min"] = fe.Param()
	case "lte", "max":
		params["max"] = fe.Param()
	case "oneof":
		params["options"] = strings.Split(fe.Param(), " ")
	default:
		setsMu.RLock()
		if allowed, ok := sets[fe.Tag()]; ok {
			params["options"] = allowed
		}
		setsMu.RUnlock()
	}

	return params
}
