package proxy

import (
	"net/http"
	"strings"
)

// HeaderTaskID carries the task id on inbound requests and every response
// of the proxy route.
const HeaderTaskID = "X-Task-Id"

// hopByHopHeaders are meaningful only for a single transport-level
// connection and are never relayed.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// FilterHopByHop returns a copy of h without hop-by-hop headers. Every
// value of repeated headers such as Set-Cookie is preserved.
func FilterHopByHop(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if isHopByHop(name) {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

func isHopByHop(name string) bool {
	_, ok := hopByHopHeaders[http.CanonicalHeaderKey(strings.TrimSpace(name))]
	return ok
}

// copyHeader adds every value of src to dst.
func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
