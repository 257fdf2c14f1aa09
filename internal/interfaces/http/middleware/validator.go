package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/orderhub/backend/internal/domain/channel"
)

// SetupValidator registers custom binding validators with gin's validator
// engine. Safe to call more than once.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
		return channel.OrderStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("channelcode", func(fl validator.FieldLevel) bool {
		return channel.Code(fl.Field().String()).IsValid()
	})
}
