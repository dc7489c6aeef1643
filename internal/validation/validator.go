package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Validator validates structs
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct against its `validate` tags
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldType.Name, err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	rules := strings.Split(tag, ",")

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() == reflect.String {
				email := field.String()
				if email != "" && (!strings.Contains(email, "@") || strings.HasPrefix(email, "@")) {
					return fmt.Errorf("invalid email format")
				}
			}

		case "min":
			if len(parts) < 2 {
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if field.Kind() == reflect.String && field.String() != "" && len(field.String()) < n {
				return fmt.Errorf("minimum length is %d", n)
			}

		case "max":
			if len(parts) < 2 {
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if field.Kind() == reflect.String && len(field.String()) > n {
				return fmt.Errorf("maximum length is %d", n)
			}

		case "slug":
			if field.Kind() == reflect.String {
				if err := validateSlug(field.String()); err != nil {
					return err
				}
			}

		case "hostname":
			if field.Kind() == reflect.String {
				if err := validateHostname(field.String()); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// validateSlug checks a URL-safe identifier: lowercase letters, digits and
// hyphens, not starting or ending with a hyphen
func validateSlug(s string) error {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return fmt.Errorf("slug must not start or end with a hyphen")
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return fmt.Errorf("slug may only contain lowercase letters, digits and hyphens")
		}
	}
	return nil
}

// validateHostname checks a fully-qualified domain name shape
func validateHostname(s string) error {
	if s == "" {
		return nil
	}
	if len(s) > 253 || !strings.Contains(s, ".") {
		return fmt.Errorf("invalid hostname")
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("invalid hostname")
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("invalid hostname")
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' {
				return fmt.Errorf("invalid hostname")
			}
		}
	}
	return nil
}
