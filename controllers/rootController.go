package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// rootHandler answers liveness probes
func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Medicare API Running"})
}

// SetupRootRoute sets up routes for the application
func SetupRootRoute(router *gin.Engine) {
	router.GET("/", rootHandler)
}
