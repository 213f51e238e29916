package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tidegate/vectorpipe/internal/pkg/jwt"
	"github.com/tidegate/vectorpipe/internal/pkg/response"
)

// PushAuth verifies that a push delivery really comes from our subscriptions.
// Two schemes are accepted: a shared token in the `token` query parameter
// (set on the push endpoint URL at subscription-creation time), or a bearer
// JWT signed with the same secret. With an empty secret the middleware is a
// no-op, which is the mode used behind IAM-authenticated ingress.
func PushAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		// health probes carry no credentials
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		if token := c.Query("token"); token != "" {
			if subtle.ConstantTimeCompare([]byte(token), secret) == 1 {
				c.Next()
				return
			}
			response.Deny(c)
			return
		}
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Deny(c)
			return
		}
		if _, err := jwt.ParseToken(parts[1], secret); err != nil {
			response.Deny(c)
			return
		}
		c.Next()
	}
}
