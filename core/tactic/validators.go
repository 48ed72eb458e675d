package tactic

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coachboard/core"
)

var (
	categoryTag  = "tactic_category"
	categoryText = "invalid category"
)

// InitValidators registers the tactic validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

// categoryValidation checks that the category is one of AllCategories
func categoryValidation(fl validator.FieldLevel) bool {
	if c, ok := fl.Field().Interface().(string); ok {
		return IsCategory(c)
	}
	return false
}
