package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCalculateOffsetLimit(t *testing.T) {
	offset, limit := CalculateOffsetLimit(3, 20)
	assert.Equal(t, uint64(40), offset)
	assert.Equal(t, 20, limit)

	offset, limit = CalculateOffsetLimit(0, 0)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, DefaultPageSize, limit)

	offset, limit = CalculateOffsetLimit(2, 1000)
	assert.Equal(t, uint64(MaxPageSize), offset)
	assert.Equal(t, MaxPageSize, limit)
}

func TestSetPageSizes(t *testing.T) {
	t.Cleanup(func() { SetPageSizes(DefaultPageSize, MaxPageSize) })

	SetPageSizes(25, 50)
	assert.Equal(t, 25, PageSize(0))
	assert.Equal(t, 50, PageSize(500))
	assert.Equal(t, 30, PageSize(30))

	SetPageSizes(0, -1)
	assert.Equal(t, DefaultPageSize, PageSize(-3))
	assert.Equal(t, DefaultPageSize, PageSize(500))
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query      string
		page, size int
	}{
		{"", 1, DefaultPageSize},
		{"page=3&size=25", 3, 25},
		{"page=-1&size=abc", 1, DefaultPageSize},
		{"page=2&size=5000", 2, MaxPageSize},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/students?"+tc.query, nil)
		page, size := ParsePaginationParams(c)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.size, size, tc.query)
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(42, 2, 10)
	assert.Equal(t, 5, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)

	empty := NewPaginationInfo(0, 3, 10)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Equal(t, 1, empty.CurrentPage)

	clamped := NewPaginationInfo(5, 9, 10)
	assert.Equal(t, 1, clamped.CurrentPage)

	oversized := NewPaginationInfo(250, 1, 1000)
	assert.Equal(t, MaxPageSize, oversized.PageSize)
	assert.Equal(t, 3, oversized.TotalPages)
}

func TestNilIfEmpty(t *testing.T) {
	assert.Nil(t, NilIfEmpty("   "))
	assert.Equal(t, "x", *NilIfEmpty(" x "))
	assert.Equal(t, 0, Deref[int](nil))
	assert.Equal(t, 3, Deref(Ptr(3)))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, LikePattern("50%_off"))
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(12, 2025)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
}
