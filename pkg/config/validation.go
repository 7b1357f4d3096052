package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus the rules that
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	for i, f := range cfg.Credentials.Files {
		if f == "" {
			return fmt.Errorf("credentials.files[%d]: path must not be empty", i)
		}
	}
	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		first := validationErrs[0]
		return fmt.Errorf("field %q failed validation rule %q (value: %v)",
			first.Namespace(), first.Tag(), first.Value())
	}
	return err
}
