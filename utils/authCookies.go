package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

const AccessTokenCookie = "accessToken"

func SetAuthCookie(c *gin.Context, accessToken string, expiry time.Duration) {
	setCookie(c, AccessTokenCookie, accessToken, int(expiry.Seconds()))
}

func ClearAuthCookie(c *gin.Context) {
	setCookie(c, AccessTokenCookie, "", -1)
}

func setCookie(c *gin.Context, name, value string, maxAge int) {
	secure := true
	if gin.Mode() == gin.DebugMode { // Toggle for local dev
		secure = false
	}
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}
