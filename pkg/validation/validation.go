// Package validation wires the request-body rules into gin's validator and
// turns validator errors into client messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var once sync.Once

// Register installs the custom tags on gin's default validator:
//
//	objectid  the string is a 24-character hex MongoDB ObjectId
//	isodate   the string is a calendar date in YYYY-MM-DD form
//
// Field names in errors follow the json, uri or form tag. Safe to call more
// than once.
func Register() error {
	var err error
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = Install(v)
	})
	return err
}

// Install adds the custom tags and the tag-name function to v.
func Install(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)
	if err := v.RegisterValidation("objectid", isObjectID); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", isISODate)
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "uri", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func isObjectID(fl validator.FieldLevel) bool {
	return primitive.IsValidObjectID(fl.Field().String())
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// Message renders the first problem in err the way clients expect it.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldMessage(verrs[0])
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "Invalid JSON body"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%q must be a %s", typeErr.Field, typeErr.Type.Kind())
	}
	if err.Error() == "EOF" {
		return "Request body is required"
	}
	return err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", name)
	case "objectid":
		return fmt.Sprintf("Invalid '%s'. Must be a MongoDB ObjectId", name)
	case "isodate":
		return fmt.Sprintf("Invalid '%s'. Please, use YYYY-MM-DD string format", name)
	case "email":
		return fmt.Sprintf("%q must be a valid email", name)
	case "min", "max":
		word := "at least"
		if fe.Tag() == "max" {
			word = "less than or equal to"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be %s %s characters long", name, word, fe.Param())
		}
		if fe.Tag() == "min" {
			return fmt.Sprintf("%q must be greater than or equal to %s", name, fe.Param())
		}
		return fmt.Sprintf("%q must be %s %s", name, word, fe.Param())
	}
	return fmt.Sprintf("%q failed on the '%s' rule", name, fe.Tag())
}
