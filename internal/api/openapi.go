package api

import (
	"context"
	_ "embed"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

//go:embed openapi.json
var openAPIDocument []byte

var (
	openAPIOnce sync.Once
	openAPIErr  error
)

// validateOpenAPIDocument parses and validates the embedded document once.
// A document that fails validation is a build defect; the endpoint reports
// it instead of serving a broken spec.
func validateOpenAPIDocument() error {
	openAPIOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openAPIDocument)
		if err != nil {
			openAPIErr = err
			return
		}
		openAPIErr = doc.Validate(context.Background())
	})
	return openAPIErr
}

// serveOpenAPI serves the embedded OpenAPI document.
func (s *Server) serveOpenAPI(c *gin.Context) {
	if err := validateOpenAPIDocument(); err != nil {
		s.logger.Error("Embedded OpenAPI document is invalid: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OpenAPI document unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json", openAPIDocument)
}
