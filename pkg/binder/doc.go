// Package binder binds HTTP request data to Go structs.
//
// Two binders are provided: JSON for request bodies and Query for URL query
// parameters. Both return plain functions so handlers can compose them
// without extra machinery:
//
//	type changePlanRequest struct {
//	    PriceID string `json:"price_id"`
//	}
//
//	var req changePlanRequest
//	if err := binder.JSON()(r, &req); err != nil {
//	    // respond with 400
//	}
//
// JSON binding is strict: unknown fields, trailing data, and oversized
// bodies (above 1MB) are rejected, and every string field is stripped of
// control characters after decoding.
//
// Query binding reads the `query` struct tag and converts values to the
// field's type. Missing parameters leave the field at its zero value:
//
//	type planFilter struct {
//	    Interval string `query:"interval"`
//	    Page     int    `query:"page"`
//	}
//
// Binding failures wrap ErrFailedToParseJSON, ErrFailedToParseQuery,
// ErrMissingContentType, or ErrUnsupportedMediaType so callers can map them
// to HTTP statuses with errors.Is.
package binder
