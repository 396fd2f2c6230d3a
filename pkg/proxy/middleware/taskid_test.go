package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestTaskIDMiddleware(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTaskID(r.Context())
		if got := w.Header().Get(TaskIDHeader); got != seen {
			t.Errorf("response header %q set before handler, context has %q", got, seen)
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := TaskIDMiddleware(handler)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "adopts provided id", header: "job-42", want: "job-42"},
		{name: "trims whitespace", header: "  job-43\t", want: "job-43"},
		{name: "generates when absent", header: ""},
		{name: "generates when blank", header: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
			if tt.header != "" {
				req.Header.Set(TaskIDHeader, tt.header)
			}
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			got := w.Header().Get(TaskIDHeader)
			if got != seen {
				t.Errorf("response id %q != context id %q", got, seen)
			}
			if tt.want != "" {
				if got != tt.want {
					t.Errorf("task id = %q, want %q", got, tt.want)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("generated task id %q is not a UUID: %v", got, err)
			}
		})
	}
}

func TestTaskIDMiddleware_UniqueIDs(t *testing.T) {
	wrapped := TaskIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
		id := w.Header().Get(TaskIDHeader)
		if ids[id] {
			t.Fatalf("duplicate task id %q", id)
		}
		ids[id] = true
	}
}

func TestGetTaskID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if got := GetTaskID(req.Context()); got != "" {
		t.Errorf("GetTaskID() = %q, want empty", got)
	}
}
