package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPrefixRewrite(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantPath  string
		wantQuery string
	}{
		{
			name:     "client prefix form",
			path:     "/myprefix/v1/namespaces",
			wantPath: "/v1/myprefix/namespaces",
		},
		{
			name:     "nested path",
			path:     "/wh/v1/namespaces/acct/tables/t1",
			wantPath: "/v1/wh/namespaces/acct/tables/t1",
		},
		{
			name:     "already canonical",
			path:     "/v1/myprefix/namespaces",
			wantPath: "/v1/myprefix/namespaces",
		},
		{
			name:      "config special case",
			path:      "/mywarehouse/v1/config",
			wantPath:  "/v1/config",
			wantQuery: "warehouse=mywarehouse",
		},
		{
			name:     "canonical config untouched",
			path:     "/v1/config",
			wantPath: "/v1/config",
		},
		{
			name:     "health untouched",
			path:     "/health",
			wantPath: "/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotQuery string
			handler := PrefixRewrite(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
			}))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if tt.wantQuery != "" && gotQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", gotQuery, tt.wantQuery)
			}
		})
	}
}

func TestPrefixRewritePreservesCallerWarehouse(t *testing.T) {
	var gotQuery string
	handler := PrefixRewrite(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
	}))

	req := httptest.NewRequest(http.MethodGet, "/wh1/v1/config?warehouse=wh2", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotQuery != "warehouse=wh2" {
		t.Errorf("caller-supplied warehouse must win, got query %q", gotQuery)
	}
}
