package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jeevijay-developers/riskmarshal-office/service"
)

// LookupHandler serves the selection data for the intake screen from the
// in-memory lookup cache.
type LookupHandler struct {
	lookups *service.LookupCache
}

func NewLookupHandler(lookups *service.LookupCache) *LookupHandler {
	return &LookupHandler{lookups: lookups}
}

// Insurers returns the insurer list
func (h *LookupHandler) Insurers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"insurers": h.lookups.Insurers()})
}

// PolicyTypes returns policy types grouped by category in display order
func (h *LookupHandler) PolicyTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"policyTypeGroups": h.lookups.PolicyTypeGroups()})
}

// Subagents returns the subagent list
func (h *LookupHandler) Subagents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subagents": h.lookups.Subagents()})
}

// Clients returns the current client options. A q parameter schedules a
// debounced search; the response reflects whatever results are current,
// so the UI polls the same endpoint as it types.
func (h *LookupHandler) Clients(c *gin.Context) {
	if q, ok := c.GetQuery("q"); ok {
		h.lookups.Search(q)
	}
	c.JSON(http.StatusOK, gin.H{"clients": h.lookups.ClientOptions()})
}
