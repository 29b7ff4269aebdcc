package activity

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/GrupoTcc462/StudyMate/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("activitykind", func(fl validator.FieldLevel) bool {
		return Kind(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, "activitykind", "{0} is not a valid activity kind")
}
