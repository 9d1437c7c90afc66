package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type purchaseRequest struct {
	ProductID string `json:"product_id"`
}

// Purchase drives one store purchase to completion. A completed purchase
// returns the ledger record; a user cancellation or a still-pending purchase
// returns no record and no error payload.
func (s *Server) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.gateway.Purchase(c.Request.Context(), strings.TrimSpace(req.ProductID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if record == nil {
		c.JSON(http.StatusOK, gin.H{"status": "incomplete"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "record": record})
}

func (s *Server) RestorePurchases(c *gin.Context) {
	result, err := s.gateway.Restore(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
