package util

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HandleDBError answers 404 for missing records and 500 otherwise.
// Returns false when err is nil and nothing was written.
func HandleDBError(c *gin.Context, err error, resourceName string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		RespondNotFound(c, resourceName)
		return true
	}
	RespondInternalError(c, "Failed to fetch "+resourceName, err)
	return true
}
