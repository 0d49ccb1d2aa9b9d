package api

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// API limits.
const (
	// DefaultListLimit applies to most_saved listings without an explicit limit.
	DefaultListLimit = 10
	// MaxListLimit caps the limit query parameter.
	MaxListLimit = 100
)
