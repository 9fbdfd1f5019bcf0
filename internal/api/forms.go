package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"yatube/internal/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNameOnce sync.Once

// useFormFieldNames makes validator report fields by their form name
// ("password_confirm") instead of the Go field name.
func useFormFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// formErrors turns a binding error into per-field messages for the template.
func formErrors(err error) service.FormErrors {
	errs := service.FormErrors{}

	var fe service.FormErrors
	if errors.As(err, &fe) {
		return fe
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("", err.Error())
		return errs
	}
	for _, e := range verrs {
		errs.Add(e.Field(), validationMessage(e))
	}
	return errs
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return service.MsgRequired
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", e.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
