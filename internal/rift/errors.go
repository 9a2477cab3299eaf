package rift

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig matches every configuration error returned by the simulator.
var ErrInvalidConfig = errors.New("invalid run configuration")

// ErrInvalidModel matches every model validation error.
var ErrInvalidModel = errors.New("invalid model")

// ConfigurationError describes a RunConfig value outside its bounds.
// No trial runs when one is returned.
type ConfigurationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is match ErrInvalidConfig.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ModelError describes an invalid tuning constant.
type ModelError struct {
	Field  string
	Reason string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidModel.
func (e *ModelError) Is(target error) bool {
	return target == ErrInvalidModel
}
