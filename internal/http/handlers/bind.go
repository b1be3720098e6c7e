package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func fieldError(field, rule, param string) FieldError {
	return FieldError{Field: field, Rule: rule, Param: param, Message: validationMessage(rule, param)}
}

func requiredField(field string) FieldError {
	return fieldError(field, "required", "")
}

// respondFieldErrors reports checks that run after binding in the same
// shape as binding failures.
func respondFieldErrors(ctx *gin.Context, fields ...FieldError) {
	RespondBadRequest(ctx, "validation_error", "Invalid request body", gin.H{"fields": fields})
}

// BindJSON decodes and validates the body into out. On failure it writes the
// error response and returns false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large.", nil)
		return false
	}

	RespondBadRequest(ctx, "validation_error", "Invalid request body", bindErrorDetails(err, out))
	return false
}

func bindErrorDetails(err error, out interface{}) gin.H {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		root := reflect.TypeOf(out)
		for root != nil && root.Kind() == reflect.Pointer {
			root = root.Elem()
		}

		fields := make([]FieldError, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, fieldError(jsonFieldName(root, fe), fe.Tag(), fe.Param()))
		}
		return gin.H{"fields": fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	// dueDate is the only time field; it wants RFC 3339
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return gin.H{
			"json":   "invalid_json_type",
			"field":  "dueDate",
			"fields": []FieldError{{Field: "dueDate", Rule: "datetime", Message: "must be an RFC 3339 timestamp"}},
		}
	}

	// encoding/json already reports the path with JSON key names
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return gin.H{
			"json":   "invalid_json_type",
			"field":  typeErr.Field,
			"fields": []FieldError{{Field: typeErr.Field, Rule: "type", Message: "must be of type " + typeErr.Type.String()}},
		}
	}

	return gin.H{"reason": err.Error()}
}

// jsonFieldName maps a validator error on a flat request struct to the JSON
// key, keeping any element index ("tags[0]").
func jsonFieldName(root reflect.Type, fe validator.FieldError) string {
	name, index, indexed := strings.Cut(fe.StructField(), "[")

	if root != nil && root.Kind() == reflect.Struct {
		if sf, ok := root.FieldByName(name); ok {
			if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag != "-" {
				name = tag
			}
		}
	}

	if indexed {
		name += "[" + index
	}
	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		return "failed " + rule + " validation"
	}
}
