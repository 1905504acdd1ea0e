// Package gin provides a Gin-compatible mount for the facilitator routes.
// This package is a thin adapter that translates gin.Context to the shared
// request envelope and delegates all verification and settlement logic to
// the facilitator package.
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	facilitator "github.com/mark3labs/x402-facilitator"
	"github.com/mark3labs/x402-facilitator/validation"
)

// Register mounts POST /verify, POST /settle and GET /supported on a Gin
// router group.
func Register(r gin.IRoutes, f *facilitator.Facilitator) {
	r.POST("/verify", func(c *gin.Context) {
		req, ok := bindRequest(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, f.Verify(c.Request.Context(), &req.Payload, &req.Requirements))
	})

	r.POST("/settle", func(c *gin.Context) {
		req, ok := bindRequest(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, f.Settle(c.Request.Context(), &req.Payload, &req.Requirements))
	})

	r.GET("/supported", func(c *gin.Context) {
		c.JSON(http.StatusOK, f.Supported())
	})
}

func bindRequest(c *gin.Context) (facilitator.PaymentRequest, bool) {
	var req facilitator.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return req, false
	}
	if err := validation.ValidatePaymentRequest(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	return req, true
}
