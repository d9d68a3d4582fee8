package compliance

import "fmt"

// ConfigError indicates the analyzer was given inputs it cannot evaluate,
// such as a zero threshold. It is a configuration problem, not a verdict.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("compliance config error: %s - %s", e.Field, e.Message)
}

// Retryable reports false: repeating the call with the same input cannot succeed
func (e *ConfigError) Retryable() bool {
	return false
}
