package note

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/GrupoTcc462/StudyMate/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("filetype", func(fl validator.FieldLevel) bool {
		return FileType(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, "filetype", "{0} is not a valid file type")
}
