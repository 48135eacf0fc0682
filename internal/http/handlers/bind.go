package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates a request body, answering a structured
// 400 on failure. Field names in the error detail are the JSON names the
// client sent, not Go struct fields. Request structs here are flat, so
// no nested-path mapping is needed.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err, out))
		return false
	}

	return true
}

func bindErrorDetails(err error, out interface{}) interface{} {
	t := baseStructType(out)

	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		fields := make([]FieldError, 0, len(verr))

		for _, fe := range verr {
			fields = append(fields, FieldError{
				Field:   jsonFieldName(t, fe.Field()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var serr *json.SyntaxError
	if errors.As(err, &serr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var terr *json.UnmarshalTypeError
	if errors.As(err, &terr) {
		field := jsonFieldName(t, strings.TrimSpace(terr.Field))

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", terr.Type.String()),
				},
			},
		}
	}

	return gin.H{"reason": err.Error()}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonFieldName resolves a field reference, which is a Go field name
// coming from the validator and a JSON key coming from encoding/json,
// to the JSON name.
func jsonFieldName(t reflect.Type, name string) string {
	if t == nil || name == "" {
		return name
	}

	if sf, ok := t.FieldByName(name); ok {
		return jsonTagName(sf)
	}

	for i := 0; i < t.NumField(); i++ {
		if tag := jsonTagName(t.Field(i)); strings.EqualFold(tag, name) {
			return tag
		}
	}

	return name
}

func jsonTagName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "url":
		return "must be a valid URL"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
