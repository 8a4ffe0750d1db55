package task

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/flowtaskhq/flowtask/core"
)

var (
	todayOrLaterTag  = "todayorlater"
	todayOrLaterText = "due date cannot be in the past"
)

// InitValidators registers the task app's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(todayOrLaterTag, todayOrLaterValidation)
	core.RegisterCustomTranslation(validate, translator, todayOrLaterTag, todayOrLaterText)
}

// todayOrLaterValidation rejects dates before today. Comparison is date-only,
// so a task due today is acceptable. Unparseable values pass; the dateonly
// validator reports those.
func todayOrLaterValidation(fl validator.FieldLevel) bool {
	due, err := time.Parse(DateLayout, fl.Field().String())
	if err != nil {
		return true
	}
	return !due.Before(core.Midnight(NowFunc()))
}
