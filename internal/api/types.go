package api

import (
	"encoding/json"
	"net/url"
)

// Envelope wraps every backend response.
// Success implies Error is nil; a failed envelope always carries Error.
type Envelope[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// rawEnvelope defers decoding of data until the outcome is known.
type rawEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// RequestConfig holds per-call request options. The zero value sends an
// authenticated request with no query, body or extra headers.
type RequestConfig struct {
	// SkipAuth sends X-Skip-Auth: true instead of an Authorization header.
	SkipAuth bool
	Params   url.Values
	Body     any
	Headers  map[string]string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginated is a page of items plus its pagination block.
type Paginated[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
