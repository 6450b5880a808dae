package handlers

import (
	"net/http"
	"strconv"
	"strings"

	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

// Pagination is both the parsed page request and the block echoed back with
// the listing. HasMore is a hint: a full page may still be the last one.
type Pagination struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Count    int  `json:"count"`
	HasMore  bool `json:"has_more"`
}

// Offset is the row offset of the first item on the page
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// parsePagination reads ?page and ?page_size. Bad values fall back to page 1
// and defaultSize; sizes above maxSize are clamped.
func parsePagination(c *gin.Context, defaultSize, maxSize int) Pagination {
	p := Pagination{Page: 1, PageSize: defaultSize}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 {
		p.PageSize = min(v, maxSize)
	}
	return p
}

// queryFilters keeps the named query params that are non-blank after trimming
func queryFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, key := range keys {
		if val := strings.TrimSpace(c.Query(key)); val != "" {
			filters[key] = val
		}
	}
	return filters
}

// writePage responds with {itemsKey: items, "pagination": p}
func writePage(c *gin.Context, itemsKey string, items any, count int, p Pagination) {
	p.Count = count
	p.HasMore = count == p.PageSize
	c.JSON(http.StatusOK, gin.H{itemsKey: items, "pagination": p})
}

// parseIDParam reads a positive integer path parameter, writing a 400 on failure
func parseIDParam(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		HandleValidationError(c, name, raw, "must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseIntFilter reads an optional positive integer from filters. Absent means 0.
func parseIntFilter(filters map[string]string, key string) (int, error) {
	raw, ok := filters[key]
	if !ok {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%s must be a positive integer", key)
	}
	return v, nil
}
