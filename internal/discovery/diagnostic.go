// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeLocationInvalid marks a configured location that cannot be used.
	CodeLocationInvalid = "location_invalid"
	// CodeLocationDisabledValue marks a location whose enabled value is not a boolean.
	CodeLocationDisabledValue = "location_value_ignored"
	// CodeListingFailed marks a source root that could not be listed.
	CodeListingFailed = "listing_failed"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "location_invalid").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the configured or resolved path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}

	// SourceRootsResult bundles resolved source roots with the diagnostics
	// produced while resolving them.
	SourceRootsResult struct {
		Roots       []SourceRoot
		Diagnostics []Diagnostic
	}
)

// logArgs returns slog key/value pairs for d.
func (d Diagnostic) logArgs() []any {
	args := []any{"code", d.Code, "path", d.Path}
	if d.Cause != nil {
		args = append(args, "error", d.Cause)
	}
	return args
}
