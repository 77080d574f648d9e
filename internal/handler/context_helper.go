package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-invigilation-api/internal/middleware"
)

// actorID is the user recorded as creator of rosters and export jobs. Requests
// without claims, such as the CLI path, are attributed to nobody.
func actorID(c *gin.Context) string {
	if claims := middleware.CurrentClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
