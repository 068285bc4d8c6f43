package utils

import (
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"-"`
	Page   int `json:"current_page"`
}

func GetPagination(r *http.Request) Pagination {
	limit := defaultPageSize
	if val, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && val > 0 {
		limit = val
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	page := 1
	if val, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && val > 0 {
		page = val
	}

	return Pagination{Limit: limit, Offset: (page - 1) * limit, Page: page}
}

// Meta builds the pagination block returned next to list results.
func (p Pagination) Meta(total int64) map[string]interface{} {
	return map[string]interface{}{
		"total_items":  total,
		"total_pages":  int(math.Ceil(float64(total) / float64(p.Limit))),
		"current_page": p.Page,
		"limit":        p.Limit,
	}
}
