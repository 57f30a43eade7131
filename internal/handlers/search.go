package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/search"
	"github.com/zfogg/unify/internal/util"
)

// Search finds people, public groups and pages
// GET /api/search?q=&type=all|personnes|groupes|pages
func (h *Handlers) Search(c *gin.Context) {
	kind := c.DefaultQuery("type", search.KindAll)
	results, err := h.kernel.Search().Search(c.Request.Context(), c.Query("q"), kind, util.OptionalUserID(c))
	if err != nil {
		util.RespondInternalError(c, "Search failed", err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetSearchStats reports recent query latencies and backend usage
// GET /api/search/stats
func (h *Handlers) GetSearchStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"elasticsearch": h.kernel.Search().Enabled(),
		"queries":       metrics.Search().Snapshot(),
	})
}
