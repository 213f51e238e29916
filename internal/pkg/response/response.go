package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Push replies always return HTTP 200 so the broker never redelivers based on
// status code; success or failure is carried in the body and the logs.

type PushReply struct {
	Status  string `json:"status"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

func Success(c *gin.Context, source string) {
	c.JSON(http.StatusOK, PushReply{Status: "Success", Source: source})
}

func SuccessMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, PushReply{Status: "Success", Message: message})
}

func NoAction(c *gin.Context, message string) {
	c.JSON(http.StatusOK, PushReply{Status: "ok", Message: message})
}

func Error(c *gin.Context, message string) {
	c.JSON(http.StatusOK, PushReply{Status: "error", Message: message})
}

// Deny is the one non-200 path: requests that fail push authentication are
// rejected before any pipeline work happens.
func Deny(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, PushReply{Status: "error", Message: "unauthorized"})
}
