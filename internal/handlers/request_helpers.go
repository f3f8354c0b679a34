package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/apperr"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondAppError maps the error taxonomy onto HTTP. Gateway and internal
// detail is logged with full context but only the public message leaves the
// process.
func respondAppError(c *gin.Context, route string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError || apperr.IsKind(err, apperr.Gateway) {
		log.Printf("[%s] [ERROR] %v", route, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
