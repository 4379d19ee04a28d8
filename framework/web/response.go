package web

import (
	"encoding/json"
	"net/http"
)

type envelope map[string]any

// Response wraps http.ResponseWriter with the JSON helpers the inspection
// endpoints use.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// JSON sends a JSON response.
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Error sends a JSON error response: {"message": msg}
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}
