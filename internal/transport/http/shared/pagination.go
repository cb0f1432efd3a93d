package shared

import (
	"net/http"
	"strconv"
)

// PageLimits bounds the limit query parameter for one kind of listing.
type PageLimits struct {
	Default int
	Max     int
}

var (
	// HeaderPages covers CL and IDP header listings.
	HeaderPages = PageLimits{Default: 50, Max: 200}
	// FeedPages covers the inbox and the activity feed.
	FeedPages = PageLimits{Default: 100, Max: 500}
)

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset, falling back to the defaults on
// missing or malformed values and clamping limit to the maximum.
func ParsePagination(r *http.Request, limits PageLimits) Pagination {
	page := Pagination{Limit: limits.Default}
	query := r.URL.Query()
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	if v, err := strconv.Atoi(query.Get("offset")); err == nil && v >= 0 {
		page.Offset = v
	}
	if limits.Max > 0 && page.Limit > limits.Max {
		page.Limit = limits.Max
	}
	return page
}
