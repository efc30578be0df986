// Package types holds the JSON envelopes shared by the storefront's machine
// endpoints. Browser-facing routes render HTML; these shapes cover health,
// readiness, and any handler that answers in JSON.
package types

// SuccessEnvelope wraps a successful JSON payload, such as the health and
// readiness check bodies.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a pkg/errors Error: the stable code, the
// public message, and optional details such as per-field validation notes.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body written for any failed JSON request.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
