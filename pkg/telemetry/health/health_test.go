package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestCheckLiveness(t *testing.T) {
	c := New(0)
	if got := c.CheckLiveness(context.Background()).Status; got != StatusOK {
		t.Errorf("Status = %q, want ok", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	healthy := func(context.Context) error { return nil }

	tests := []struct {
		name     string
		critical map[string]CheckFunc
		optional map[string]CheckFunc
		want     string
		ready    bool
	}{
		{
			name:  "no checks",
			want:  StatusReady,
			ready: true,
		},
		{
			name:     "all healthy",
			critical: map[string]CheckFunc{"store": healthy},
			optional: map[string]CheckFunc{"upstream": healthy},
			want:     StatusReady,
			ready:    true,
		},
		{
			name:     "optional failing",
			critical: map[string]CheckFunc{"store": healthy},
			optional: map[string]CheckFunc{"upstream": failing},
			want:     StatusDegraded,
			ready:    true,
		},
		{
			name:     "critical failing",
			critical: map[string]CheckFunc{"store": failing},
			optional: map[string]CheckFunc{"upstream": failing},
			want:     StatusUnhealthy,
			ready:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, fn := range tt.critical {
				c.RegisterCheck(name, fn)
			}
			for name, fn := range tt.optional {
				c.RegisterOptionalCheck(name, fn)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("Status = %q, want %q", status.Status, tt.want)
			}
			if status.Ready() != tt.ready {
				t.Errorf("Ready() = %v, want %v", status.Ready(), tt.ready)
			}
			if len(status.Checks) != len(tt.critical)+len(tt.optional) {
				t.Errorf("len(Checks) = %d", len(status.Checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	start := time.Now()
	status := c.CheckReadiness(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("readiness took %v, want bounded by timeout", elapsed)
	}

	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v", result)
	}
}

func TestListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("store", PingCheck(fakePinger{}))
	c.RegisterOptionalCheck("upstream", PingCheck(fakePinger{}))
	c.RegisterCheck("store", PingCheck(fakePinger{}))

	if got := c.ListChecks(); !reflect.DeepEqual(got, []string{"store", "upstream"}) {
		t.Errorf("ListChecks() = %v", got)
	}
}

func TestPingCheck(t *testing.T) {
	if err := PingCheck(fakePinger{})(context.Background()); err != nil {
		t.Errorf("healthy ping error = %v", err)
	}
	want := errors.New("unavailable")
	if err := PingCheck(fakePinger{err: want})(context.Background()); !errors.Is(err, want) {
		t.Errorf("failing ping error = %v, want %v", err, want)
	}
}

func TestHTTPCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"not found is reachable", http.StatusNotFound, false},
		{"server error", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := HTTPCheck(srv.Client(), srv.URL)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HTTPCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		if err := HTTPCheck(nil, url)(context.Background()); err == nil {
			t.Error("HTTPCheck() against closed server returned nil")
		}
	})
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
	}{
		{"store up", nil, http.StatusOK},
		{"store down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			c.RegisterCheck("store", PingCheck(fakePinger{err: tt.pingErr}))

			rec := httptest.NewRecorder()
			c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, ok := body.Checks["store"]; !ok {
				t.Error("response missing store check")
			}
		})
	}
}

func TestLivenessHandler_Head(t *testing.T) {
	c := New(0)
	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response has body %q", rec.Body.String())
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2025-11-20").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("VersionInfo = %+v", info)
	}
}
