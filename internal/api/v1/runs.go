package v1

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"greenroom/internal/tools"
)

const defaultRunListLimit = 50

// listToolRuns returns the caller's recent tool run audit records.
func (h *APIHandlers) listToolRuns(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	limit := defaultRunListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = parsed
	}

	runs, err := h.repos.ToolRuns.ListForUser(userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// getToolRun returns one of the caller's tool runs.
func (h *APIHandlers) getToolRun(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.repos.ToolRuns.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(c, &tools.NotFoundError{Resource: "tool run", ID: c.Param("id")})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
