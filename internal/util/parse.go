package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParseInt parses s, returning defaultValue when it is not an integer
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ClampLimit applies the default for non-positive limits and the 100 cap
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// Pagination reads ?limit and the named offset parameter ("offset" or "skip")
func Pagination(c *gin.Context, offsetParam string) (limit, offset int) {
	limit = ClampLimit(ParseInt(c.Query("limit"), DefaultPageLimit))
	offset = ParseInt(c.Query(offsetParam), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
