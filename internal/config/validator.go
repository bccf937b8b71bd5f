package config

import "github.com/go-playground/validator/v10"

var v = validator.New()

// validateStruct returns the first validation error, or nil on success.
// It runs immediately after the YAML decode so the binary never proceeds
// with partial or malformed settings.
func validateStruct(s *Settings) error {
	return v.Struct(s)
}
