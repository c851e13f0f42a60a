package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
)

func (s *Server) CreateActTemplate(c *gin.Context) {
	var req templatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListActTemplates(c *gin.Context) {
	resp, err := s.templateSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetActTemplate(c *gin.Context) {
	resp, err := s.templateSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateActTemplate(c *gin.Context) {
	var req templatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteActTemplate(c *gin.Context) {
	if err := s.templateSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

type evaluateTemplateRequest struct {
	BaseAmount int64            `json:"base_amount"`
	UserInputs map[string]int64 `json:"user_inputs,omitempty"`
}

// EvaluateActTemplate prices a template without creating anything: the
// devis (quote) endpoint.
func (s *Server) EvaluateActTemplate(c *gin.Context) {
	var req evaluateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeCalcSvc.Evaluate(c.Request.Context(), feedomain.EvaluateRequest{
		TemplateID: strings.TrimSpace(c.Param("id")),
		BaseAmount: req.BaseAmount,
		UserInputs: req.UserInputs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
