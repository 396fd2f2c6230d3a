// Package types defines the JSON error envelope used for responses the
// gateway produces itself:
//
//	{"error": {"message": "...", "type": "bad_gateway", "code": "upstream_error"}}
//
// The type selects the HTTP status via ErrorDetail.HTTPStatusCode.
package types
