package canvas

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coachboard/core"
)

var (
	toolTag  = "canvas_tool"
	toolText = "invalid tool"

	colorTag  = "canvas_color"
	colorText = "color is not in the palette"

	documentTag  = "canvas_document"
	documentText = "invalid canvas document"
)

// InitValidators registers the canvas validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(toolTag, toolValidation)
	core.RegisterCustomTranslation(validate, translator, toolTag, toolText)

	_ = validate.RegisterValidation(colorTag, colorValidation)
	core.RegisterCustomTranslation(validate, translator, colorTag, colorText)

	validate.RegisterStructValidation(documentStructValidation, Document{})
	core.RegisterCustomTranslation(validate, translator, documentTag, documentText)
}

func toolValidation(fl validator.FieldLevel) bool {
	if tool, ok := fl.Field().Interface().(Tool); ok {
		return tool.IsValid()
	}
	return false
}

func colorValidation(fl validator.FieldLevel) bool {
	if c, ok := fl.Field().Interface().(string); ok {
		return IsPaletteColor(c)
	}
	return false
}

// documentStructValidation applies the shape rules of Document.Validate.
func documentStructValidation(sl validator.StructLevel) {
	doc, ok := sl.Current().Interface().(Document)
	if !ok {
		return
	}
	if err := validateTokens(doc.Players); err != nil {
		sl.ReportError(doc.Players, "players", "Players", documentTag, "")
	}
	for _, s := range doc.Lines {
		if err := s.validate(); err != nil {
			sl.ReportError(doc.Lines, "lines", "Lines", documentTag, "")
			return
		}
	}
}
