package v1

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"greenroom/internal/tools"
)

// getSearchResult returns one of the caller's cached search payloads.
func (h *APIHandlers) getSearchResult(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	sr, err := h.repos.SearchResults.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(c, &tools.NotFoundError{Resource: "search result", ID: id})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}
