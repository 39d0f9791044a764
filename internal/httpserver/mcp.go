package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ynachiket/acp-checkout-poc/internal/mcp"
)

// mcpHandler serves JSON-RPC 2.0 over a single POST. Protocol errors are
// returned with HTTP 200 as JSON-RPC error objects.
func mcpHandler(rpc rpcHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusOK, mcp.ErrorResponse(nil, mcp.CodeParseError, "Parse error"))
			return
		}
		var req mcp.Request
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusOK, mcp.ErrorResponse(nil, mcp.CodeParseError, "Parse error: "+err.Error()))
			return
		}
		c.JSON(http.StatusOK, rpc.Handle(c.Request.Context(), req))
	}
}
