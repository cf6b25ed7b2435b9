package api

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// registerValidations installs domain value checks on gin's binding
// engine so a bad enum value fails at bind time with a field error
// instead of surfacing as an invalid transition later.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("party_type", func(fl validator.FieldLevel) bool {
		switch models.PartyType(fl.Field().String()) {
		case models.PartyBorrower, models.PartyLender, models.PartyAdmin,
			models.PartyValuer, models.PartyMonitoringSurveyor, models.PartySolicitor:
			return true
		}
		return false
	})

	v.RegisterValidation("acting_for", func(fl validator.FieldLevel) bool {
		switch models.ActingFor(fl.Field().String()) {
		case models.ActingForLender, models.ActingForBorrower:
			return true
		}
		return false
	})

	v.RegisterValidation("thread_type", func(fl validator.FieldLevel) bool {
		_, known := models.DefaultThreadVisibility[models.ThreadType(fl.Field().String())]
		return known
	})
}
