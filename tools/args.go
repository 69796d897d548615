package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SearchWebArgs are the arguments of search_web.
type SearchWebArgs struct {
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results" validate:"gte=0,lte=20"`
}

// ScrapeWebpageArgs are the arguments of scrape_webpage.
type ScrapeWebpageArgs struct {
	URL      string `json:"url" validate:"required,url"`
	MaxChars int    `json:"max_chars" validate:"gte=0"`
}

// GetHistoryArgs are the arguments of get_history.
type GetHistoryArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit" validate:"gte=0,lte=50"`
}

// ArgumentError reports arguments that failed to decode or validate.
type ArgumentError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	switch {
	case e.Reason == "required":
		return fmt.Sprintf("Missing required argument: %s", e.Field)
	case e.Field == "":
		return fmt.Sprintf("Invalid arguments: %s", e.Reason)
	default:
		return fmt.Sprintf("Invalid argument %s: %s", e.Field, e.Reason)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeArgs decodes raw into T and validates it. Blank input decodes as an
// empty object so that missing required fields are reported by name.
func decodeArgs[T any](tool string, raw json.RawMessage) (T, error) {
	var args T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	if err := json.Unmarshal(raw, &args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return args, &ArgumentError{Tool: tool, Field: typeErr.Field, Reason: "expected " + typeErr.Type.String()}
		}
		return args, &ArgumentError{Tool: tool, Reason: err.Error()}
	}

	if err := validate.Struct(args); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return args, &ArgumentError{Tool: tool, Field: verrs[0].Field(), Reason: describe(verrs[0])}
		}
		return args, &ArgumentError{Tool: tool, Reason: err.Error()}
	}
	return args, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "url":
		return "must be an absolute URL"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
