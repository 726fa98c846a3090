package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxInputBytes bounds one tool invocation body.
const maxInputBytes = 1 << 20

// listTools returns the registry catalog.
func (h *APIHandlers) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tools": h.registry.List(),
	})
}

// invokeTool executes a synchronous tool inline (200 + envelope) or
// dispatches an async tool as a job (202 + handle). The route is the same
// either way; the tool's declaration decides.
func (h *APIHandlers) invokeTool(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	name := c.Param("name")
	tool, err := h.registry.Lookup(name)
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInputBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	input := json.RawMessage(body)

	if tool.Async {
		handle, err := h.dispatcher.Dispatch(c.Request.Context(), name, userID, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, handle)
		return
	}

	result, err := h.executor.Execute(c.Request.Context(), name, userID, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
