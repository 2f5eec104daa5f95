package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/service"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// JWT authenticates the bearer token and stores the caller's id in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthenticated(c)
			return
		}

		id, err := service.ParseJWT(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(ctxUserID, id.UserID)
		c.Set(ctxEmail, id.Email)
		c.Next()
	}
}

// UserID returns the authenticated caller set by JWT.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ctxUserID)
	return id, id != ""
}

// Email returns the email claim of the authenticated caller, if any.
func Email(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

func abortUnauthenticated(c *gin.Context) {
	e := domain.ErrUnauthenticated
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": e.Message,
		"kind":  e.Kind,
		"code":  e.Code,
	})
}
