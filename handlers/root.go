package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root is the placeholder landing route of the API.
func Root(c *gin.Context) {
	c.String(http.StatusOK, "API is running...")
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
