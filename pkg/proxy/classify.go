package proxy

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// IsStreamRequest reports whether body is a JSON object whose "stream"
// field is the boolean true. Anything else, including malformed JSON, an
// empty body, invalid UTF-8, a non-object or a non-boolean stream field,
// is buffered.
// The field name is matched exactly.
func IsStreamRequest(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' || !utf8.Valid(body) {
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	return bytes.Equal(fields["stream"], []byte("true"))
}
