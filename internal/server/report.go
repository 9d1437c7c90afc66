package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	reportdomain "github.com/siderealabs/astroledger/internal/report/domain"
)

type generateReportRequest struct {
	ProfileID string `json:"profile_id"`
	Category  string `json:"category"`
	Language  string `json:"language"`
}

func (s *Server) GenerateReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.Generate(c.Request.Context(), reportdomain.GenerateRequest{
		ProfileID: strings.TrimSpace(req.ProfileID),
		Category:  creditdomain.ReportCategory(strings.TrimSpace(req.Category)),
		Language:  req.Language,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) GetReportByID(c *gin.Context) {
	report, err := s.reportSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) ListProfileReports(c *gin.Context) {
	reports, err := s.reportSvc.ListByProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
