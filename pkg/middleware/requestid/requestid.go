// Package requestid tags every request with an identifier so access logs and
// ledger writes for the same claim operation can be correlated.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the request/response header carrying the identifier. Inbound
// values from upstream proxies are trusted and echoed back unchanged.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware ensures the request carries an ID, minting one when the caller
// did not supply it, and reflects it on the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value returns the request ID for the current request, or "" outside the
// middleware.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, isString := v.(string); isString {
			return id
		}
	}
	return ""
}
