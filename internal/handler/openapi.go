package handler

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the API description. The document is static for the
// life of the process, so it is marshalled once up front.
type OpenAPIHandler struct {
	body []byte
	err  error
}

// NewOpenAPIHandler creates a handler serving doc.
func NewOpenAPIHandler(doc *openapi3.T) *OpenAPIHandler {
	b, err := json.MarshalIndent(doc, "", "  ")
	return &OpenAPIHandler{body: b, err: err}
}

// ServeSpec writes the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Server error",
			"error":   "marshal openapi document: " + h.err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.body)
}
