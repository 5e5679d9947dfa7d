package helpers

import (
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models/dto"
)

// Page size bounds used until SetPageSizes is called
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type pageSizes struct {
	def, max int
}

var sizes atomic.Pointer[pageSizes]

func init() {
	sizes.Store(&pageSizes{def: DefaultPageSize, max: MaxPageSize})
}

// SetPageSizes replaces the page size bounds for list endpoints.
// Invalid bounds fall back to the package defaults.
func SetPageSizes(defaultSize, maxSize int) {
	if defaultSize < 1 {
		defaultSize = DefaultPageSize
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	sizes.Store(&pageSizes{def: defaultSize, max: maxSize})
}

// PageSize resolves a requested page size: missing or non-positive sizes get
// the default, oversized ones are clamped to the maximum.
func PageSize(size int) int {
	b := sizes.Load()
	switch {
	case size <= 0:
		return b.def
	case size > b.max:
		return b.max
	default:
		return size
	}
}

// CalculateOffsetLimit converts a 1-based page and requested size into SQL offset and limit
func CalculateOffsetLimit(page, size int) (offset uint64, limit int) {
	limit = PageSize(size)
	if page < 1 {
		page = 1
	}
	return uint64((page - 1) * limit), limit
}

// NewPaginationInfo describes the page actually served. The current page is
// capped at the last page; an empty result still has one page.
func NewPaginationInfo(totalItems int64, page, size int) dto.PaginationInfo {
	size = PageSize(size)
	if page < 1 {
		page = 1
	}

	totalPages := int((totalItems + int64(size) - 1) / int64(size))
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams reads ?page and ?size. Unparseable values fall back
// to the first page and the default size.
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.Query("size"))
	if err != nil {
		size = 0
	}
	return page, PageSize(size)
}
