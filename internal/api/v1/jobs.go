package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getJob returns one of the caller's jobs, with the cached SearchResult
// resolved inline when the terminal output points at one.
func (h *APIHandlers) getJob(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	job, err := h.dispatcher.GetJob(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// listActiveJobs returns the caller's non-terminal jobs. Without ?type= the
// view is restricted to the pollable research tools.
func (h *APIHandlers) listActiveJobs(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	jobs, err := h.dispatcher.ListActive(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
