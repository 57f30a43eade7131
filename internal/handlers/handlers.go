// Package handlers implements the JSON API. Every handler reads the
// authenticated user from the gin context, queries gorm and answers JSON.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/kernel"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	kernel *kernel.Kernel
}

// NewHandlers creates a new handlers instance backed by k
func NewHandlers(k *kernel.Kernel) *Handlers {
	return &Handlers{kernel: k}
}

// db scopes the kernel's handle to the request context
func (h *Handlers) db(c *gin.Context) *gorm.DB {
	return h.kernel.DB().WithContext(c.Request.Context())
}

func (h *Handlers) isProduction() bool {
	return h.kernel.Config().IsProduction()
}
