// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Probe fields
	FieldVerdict     = "verdict"
	FieldElapsedMS   = "elapsed_ms"
	FieldThresholdMS = "threshold_ms"
	FieldSamples     = "samples"

	// Path fields
	FieldPath = "path"
)
