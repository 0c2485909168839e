// Package pagination turns page/limit/sort query parameters into a window
// over the recent-events history. Query values never fail a request: anything
// malformed or out of range falls back to its default.
package pagination

import (
	"math"
	"net/url"
	"strconv"
)

// Params is the window a request asked for.
type Params struct {
	Page   int32  // 1-based page number
	Limit  int32  // items per page
	Offset int32  // items to skip before the window starts
	Sort   string // "newest" or "oldest"
}

const (
	// MaxLimit caps how many items one page may return.
	MaxLimit int32 = 100
	// DefaultPage applies when the query carries no usable page.
	DefaultPage int32 = 1
	// DefaultLimit applies when the query carries no usable limit.
	DefaultLimit int32 = 10
	// DefaultSort applies when the query carries no usable sort.
	DefaultSort = "newest"
)

// calculateOffset converts page and limit into the number of items to skip.
// The product is taken in 64 bits and saturates at MaxInt32 so a huge page
// number cannot wrap the offset negative.
func calculateOffset(page, limit int32) int32 {
	if page < 1 {
		page = 1
	}
	offset := int64(page-1) * int64(limit)
	if offset > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(offset)
}

func isValidSort(sort string) bool {
	switch sort {
	case "newest", "oldest":
		return true
	}
	return false
}

// PaginationOption adjusts the defaults GetPaginationParams starts from.
type PaginationOption func(*Params)

// WithDefaultLimit replaces DefaultLimit. Non-positive values are ignored.
func WithDefaultLimit(limit int32) PaginationOption {
	return func(p *Params) {
		if limit > 0 {
			p.Limit = limit
		}
	}
}

// WithDefaultSort replaces DefaultSort. Unknown sort orders are ignored.
func WithDefaultSort(sort string) PaginationOption {
	return func(p *Params) {
		if isValidSort(sort) {
			p.Sort = sort
		}
	}
}

// GetPaginationParams reads page, limit and sort from the query. Options
// apply first, then query values: each must parse as a positive 32-bit
// integer or the default stands, limit is capped at MaxLimit, and the offset
// is derived from whatever survived.
func GetPaginationParams(q url.Values, opts ...PaginationOption) *Params {
	params := &Params{
		Page:  DefaultPage,
		Limit: DefaultLimit,
		Sort:  DefaultSort,
	}
	for _, opt := range opts {
		opt(params)
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if val, err := strconv.ParseInt(pageStr, 10, 32); err == nil && val > 0 {
			params.Page = int32(val)
		}
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if val, err := strconv.ParseInt(limitStr, 10, 32); err == nil && val > 0 {
			params.Limit = int32(val)
		}
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	params.Offset = calculateOffset(params.Page, params.Limit)

	if sortStr := q.Get("sort"); sortStr != "" && isValidSort(sortStr) {
		params.Sort = sortStr
	}
	return params
}

// GetHasNext reports whether items remain past the current window.
func GetHasNext(offset, limit, count int32) bool {
	return int64(offset)+int64(limit) < int64(count)
}
