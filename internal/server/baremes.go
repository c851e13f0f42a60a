package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
)

func (s *Server) CreateBareme(c *gin.Context) {
	var req baremedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.baremeSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBaremes(c *gin.Context) {
	resp, err := s.baremeSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBareme(c *gin.Context) {
	resp, err := s.baremeSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
