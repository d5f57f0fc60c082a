package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	telephoneRe  = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{2,31}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Decimals validate as their string form so tags like "money" see a scalar.
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		v.RegisterTagNameFunc(jsonTagName)
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("telephone", validateTelephone)
		_ = v.RegisterValidation("money", validateMoney)
		_ = v.RegisterValidation("password_bytes", validatePasswordBytes)
	}
}

func jsonTagName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

func validateTelephone(fl validator.FieldLevel) bool {
	return telephoneRe.MatchString(fl.Field().String())
}

// validatePasswordBytes enforces bcrypt's limit, which counts bytes, not runes.
func validatePasswordBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= ports.MaxPasswordBytes
}

// validateMoney accepts non-negative amounts with at most two decimal places.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return domain.ValidateMoney(fl.FieldName(), d) == nil
}

// DecodeStrict decodes a JSON body into v, rejecting unknown fields and
// trailing data, then runs the binding validator on the result.
// An empty body is reported as ErrEmptyBody before validation runs.
func DecodeStrict(body io.Reader, v interface{}) error {
	if body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return decodeError(err)
	}
	if dec.More() {
		return apperror.Validation("request body must contain a single JSON object")
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return BindError(err)
	}
	return nil
}

// ErrEmptyBody is returned by DecodeStrict when the request carries no body.
var ErrEmptyBody = apperror.Validation("request body is required")

// BindError converts a binding or validation failure into a VAL_001 error.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.Wrap("VAL_001", fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()), http.StatusBadRequest, err)
	}
	return decodeError(err)
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperror.Wrap("VAL_001", "request body too large", http.StatusRequestEntityTooLarge, err)
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		return apperror.Wrap("VAL_001", "unknown field "+strings.TrimPrefix(msg, "json: unknown field "), http.StatusBadRequest, err)
	}
	return apperror.Wrap("VAL_001", "invalid request body", http.StatusBadRequest, err)
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
