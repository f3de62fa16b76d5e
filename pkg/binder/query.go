package binder

import (
	"fmt"
	"net/http"
)

// Query creates a query string binder function. Parameter names come from
// the `query` struct tag; fields without a value in the URL keep their zero
// value.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if r.URL == nil {
			return fmt.Errorf("%w: request has no URL", ErrFailedToParseQuery)
		}
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}
