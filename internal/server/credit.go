package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
)

func (s *Server) GetCreditBalances(c *gin.Context) {
	balances := make(map[string]int, len(creditdomain.Categories()))
	for _, category := range creditdomain.Categories() {
		credits, err := s.creditSvc.AvailableCredits(c.Request.Context(), category)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		balances[string(category)] = len(credits)
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

func (s *Server) ListAvailableCredits(c *gin.Context) {
	category := creditdomain.ReportCategory(strings.TrimSpace(c.Param("category")))
	credits, err := s.creditSvc.AvailableCredits(c.Request.Context(), category)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": credits, "count": len(credits)})
}

func (s *Server) GetProfileCreditHistory(c *gin.Context) {
	profileID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || profileID == 0 {
		AbortWithError(c, creditdomain.ErrInvalidProfile)
		return
	}

	history, err := s.creditSvc.CreditHistory(c.Request.Context(), profileID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": history})
}
