package handlers

import "github.com/gin-gonic/gin"

// actorRef resolves the acting party reference for a request. An
// explicit value in the request body wins; otherwise the X-Party-Ref
// header set by the gateway identifies the caller.
func actorRef(c *gin.Context, bodyRef string) string {
	if bodyRef != "" {
		return bodyRef
	}
	return c.GetHeader("X-Party-Ref")
}
