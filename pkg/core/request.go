package core

import "maps"

// Params is a loosely-typed parameter bag for building requests.
type Params map[string]any

// Request is the venue-agnostic request envelope. BuildRequest fills in the
// method, logical path, and query parameters; Sign finalizes the absolute
// URL (path segments interpolated, leftover query encoded) and, for private
// endpoints, the authentication headers.
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	URL         string            `json:"url,omitempty"`
	Query       Params            `json:"query,omitempty"`
	Body        any               `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Weight      int               `json:"weight"`
	RequireAuth bool              `json:"require_auth"`
}

// NewRequest creates a Request with the given method and path and a default
// weight of one.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   make(Params),
		Headers: make(map[string]string),
		Weight:  1,
	}
}

// SetQuery sets a single query parameter.
func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

// SetQueryParams merges the given parameters into the query.
func (r *Request) SetQueryParams(params Params) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	maps.Copy(r.Query, params)
	return r
}

// SetBody sets the request body.
func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

// SetHeader sets a single header.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetWeight sets the rate-limit weight of the request.
func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// SetRequireAuth marks the request as a private, signed call.
func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}
