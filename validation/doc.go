// Package validation validates configuration structs through struct tags
// using go-playground/validator.
//
//	type Config struct {
//	    BaseURL string        `validate:"omitempty,httpurl"`
//	    Timeout time.Duration `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Failures are returned as *errors.AppError with per-field details.
package validation
