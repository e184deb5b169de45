package application

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// identifierPattern matches component IDs: a letter or underscore
// followed by letters, digits, or underscores.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// registerCustomValidators installs the validation tags used by fit
// configurations beyond the built-in struct tags.
func registerCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
}
