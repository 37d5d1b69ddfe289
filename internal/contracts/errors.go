package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy of the selection pipeline
var (
	ErrUpstreamUnavailable    = errors.New("upstream data unavailable")
	ErrUpstreamTimeout        = errors.New("upstream timeout")
	ErrMalformedAdvisorOutput = errors.New("malformed advisor output")
	ErrPersistence            = errors.New("persistence failure")
	ErrConfigurationMissing   = errors.New("configuration missing")
	ErrNoCandidates           = errors.New("no candidates")
)

// ConfigMissingError names the missing setting
type ConfigMissingError struct {
	Setting string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// Unwrap lets errors.Is match ErrConfigurationMissing
func (e *ConfigMissingError) Unwrap() error {
	return ErrConfigurationMissing
}
