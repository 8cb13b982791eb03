package config

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

// fieldNamePattern matches front matter keys such as description, og.description or meta_title.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("field_name", validateFieldName); err != nil {
		return err
	}
	if err := v.RegisterValidation("extension", validateExtension); err != nil {
		return err
	}
	return v.RegisterValidation("glob", validateGlob)
}

func validateFieldName(fl validator.FieldLevel) bool {
	return fieldNamePattern.MatchString(fl.Field().String())
}

// validateExtension accepts a leading dot followed by at least one character
// and no path separators, e.g. ".md" or ".tar.gz".
func validateExtension(fl validator.FieldLevel) bool {
	ext := fl.Field().String()
	if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
		return false
	}
	return !strings.ContainsAny(ext, `/\`)
}

func validateGlob(fl validator.FieldLevel) bool {
	pattern := fl.Field().String()
	return pattern != "" && doublestar.ValidatePattern(pattern)
}
