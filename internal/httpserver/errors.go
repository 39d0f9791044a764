package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFor(code string) int {
	switch code {
	case "missing":
		return http.StatusNotFound
	case "invalid", "not_ready", "product_unavailable", "payment_declined":
		return http.StatusBadRequest
	case "conflict", "invalid_state":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error as {code, message}. Unclassified
// failures are logged and replaced with a generic message.
func writeError(c *gin.Context, logger *log.Logger, err error) {
	code := domain.Code(err)
	status := statusFor(code)
	message := domain.Reason(err)
	if status == http.StatusInternalServerError {
		logger.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		message = "Internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

func badJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "invalid", Message: "Invalid JSON body"})
}
