package shared

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		limits PageLimits
		want   Pagination
	}{
		{"defaults", "", HeaderPages, Pagination{Limit: 50}},
		{"feed defaults", "", FeedPages, Pagination{Limit: 100}},
		{"explicit", "?limit=20&offset=40", HeaderPages, Pagination{Limit: 20, Offset: 40}},
		{"clamped", "?limit=1000", HeaderPages, Pagination{Limit: 200}},
		{"feed clamp is wider", "?limit=1000", FeedPages, Pagination{Limit: 500}},
		{"malformed falls back", "?limit=abc&offset=-3", HeaderPages, Pagination{Limit: 50}},
		{"zero limit falls back", "?limit=0", FeedPages, Pagination{Limit: 100}},
		{"no max", "?limit=1000", PageLimits{Default: 10}, Pagination{Limit: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/cl"+tt.query, nil)
			if got := ParsePagination(req, tt.limits); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
