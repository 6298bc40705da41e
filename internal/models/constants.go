package models

// Common constants used across the application
const (
	// UnknownStep labels a trip endpoint whose business step could not be resolved.
	UnknownStep BusinessStep = "Unknown"
)
