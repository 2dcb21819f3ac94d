package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/serenatalabs/serenata/internal/checkout"
)

func (s *Server) handleCheckoutCreate(c *gin.Context) {
	var req checkout.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", checkout.ErrInvalidRequest, err.Error()))
		return
	}

	resp, err := s.checkoutSvc.Create(c.Request.Context(), &req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
