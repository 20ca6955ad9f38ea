package api

import (
	"net/http"
	"strconv"
	"strings"
)

// Pagination is the metadata block every list endpoint returns.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// PagedResponse is the list envelope: {data, pagination}.
type PagedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes the derived fields from a total count.
func NewPagination(page, limit int, totalItems int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((totalItems + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1 && totalItems > 0,
	}
}

// pageParams reads page/limit from the query string, clamping invalid
// values to safe defaults instead of rejecting the request.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// sortParams reads sort_by/sort_order. The column itself is validated
// downstream against the query layer's allow-list.
func sortParams(r *http.Request) (sortBy string, desc bool) {
	sortBy = strings.TrimSpace(r.URL.Query().Get("sort_by"))
	order := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sort_order")))
	return sortBy, order != "asc"
}
