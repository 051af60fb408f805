package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborgrill/pos-backoffice-api/services"
)

// itoa formats a record id for audit entries and URL comparisons
func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// enumList joins the allowed values of a string enum for error messages
func enumList[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// respondOK writes the success envelope with 200
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondCreated writes the success envelope with 201
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the error envelope with the given status and code
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError unwraps a services.Error into the error envelope,
// falling back to a generic 500 for unexpected errors
func respondServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		respondError(c, svcErr.Status, svcErr.Code, svcErr.Message)
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}
