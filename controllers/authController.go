package controllers

import (
	"Medicare/handlers"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler *handlers.AuthHandler
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler) *AuthController {
	return &AuthController{
		Handler: authHandler,
	}
}

// RegisterRoutes mounts the hospital account routes. tokenAuth guards the
// routes that need a signed in hospital.
func (ac *AuthController) RegisterRoutes(router *gin.Engine, tokenAuth gin.HandlerFunc) {
	// Public routes: No authentication required
	router.POST("/auth/register", ac.Handler.Register)
	router.POST("/auth/login", ac.Handler.Login)
	router.POST("/auth/send-reset-code", ac.Handler.SendResetCode)
	router.POST("/auth/change-password", ac.Handler.ChangePassword)

	authGroup := router.Group("/auth").Use(tokenAuth)
	{
		authGroup.POST("/logout", ac.Handler.Logout)
		authGroup.GET("/profile", ac.Handler.Profile)
	}
}
