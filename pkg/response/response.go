// Package response writes the JSON envelope shared by the admin API and webhook rejections.
// Accepted webhooks answer with their own body (webhooks.Response), not this envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope: Data on success, Error with a human-readable reason otherwise.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// BadRequest sends 400: malformed bodies, unknown forms, rejected payments, bad query params.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401: bad webhook signatures and missing or invalid admin tokens.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403 for a valid token without the admin role.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404 for an unknown registration id.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503 when the health check cannot reach the database.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500 when a unit of work fails; the transaction has already rolled back.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}
