package core

import "context"

// Protocol defines the interface a venue connector implements so the
// framework can drive it by composition rather than inheritance. Each venue
// handles its own request building, signing, response normalization, and
// error translation behind this interface.
type Protocol interface {
	// Name returns the connector identifier (e.g., "quadency").
	Name() string

	// Version returns the API version being used.
	Version() string

	// BaseURL returns the API base URL for the given endpoint visibility
	// and environment. Sandbox mode returns the staging URL.
	BaseURL(private, sandbox bool) string

	// BuildRequest constructs a request envelope for the specified operation.
	// The params map contains operation-specific parameters.
	BuildRequest(ctx context.Context, op Operation, params Params) (*Request, error)

	// Sign finalizes the request envelope: it resolves the absolute URL and,
	// for private requests, computes the authentication headers. Public
	// requests ignore the credentials and carry no headers.
	Sign(req *Request, creds Credentials, sandbox bool) error

	// ParseResponse normalizes an HTTP response body to the canonical type
	// for the operation. Error responses are translated via HandleErrors.
	ParseResponse(op Operation, statusCode int, body []byte) (any, error)

	// HandleErrors inspects an HTTP response and returns a typed error for
	// 4xx/5xx bodies, or nil when the response carries no mappable error.
	HandleErrors(statusCode int, body []byte) error

	// SupportedOperations returns the list of operations this protocol supports.
	SupportedOperations() []Operation

	// RateLimits returns the rate limiting configuration for this venue.
	RateLimits() RateLimitConfig
}
