package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		total       int64
		wantPages   int
		wantNext    bool
		wantPrev    bool
	}{
		{"middle page", 2, 20, 45, 3, true, true},
		{"first page", 1, 20, 45, 3, true, false},
		{"last page", 3, 20, 45, 3, false, true},
		{"exact fit", 2, 20, 40, 2, false, true},
		{"empty result", 1, 20, 0, 0, false, false},
		{"single page", 1, 20, 5, 1, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantPrev, p.HasPrevious)
			assert.Equal(t, tt.total, p.TotalItems)
		})
	}
}

func TestPageParamsClamping(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 20},
		{"page=3&limit=50", 3, 50},
		{"page=0&limit=0", 1, 20},
		{"page=-2&limit=1000", 1, 20},
		{"page=abc&limit=xyz", 1, 20},
		{"limit=100", 1, 100},
		{"limit=101", 1, 20},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/v1/emails?"+tt.query, nil)
		page, limit := pageParams(r)
		assert.Equal(t, tt.wantPage, page, "query %q", tt.query)
		assert.Equal(t, tt.wantLimit, limit, "query %q", tt.query)
	}
}

func TestSortParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?sort_by=sent_at&sort_order=asc", nil)
	sortBy, desc := sortParams(r)
	assert.Equal(t, "sent_at", sortBy)
	assert.False(t, desc)

	r = httptest.NewRequest("GET", "/x?sort_by=subject", nil)
	sortBy, desc = sortParams(r)
	assert.Equal(t, "subject", sortBy)
	assert.True(t, desc)

	r = httptest.NewRequest("GET", "/x?sort_order=DESC", nil)
	_, desc = sortParams(r)
	assert.True(t, desc)
}
