package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		Status         string `form:"statut"`
		ClientID       string `form:"clientId"`
		SubscriptionID string `form:"abonnementId"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Status:         strings.TrimSpace(query.Status),
		ClientID:       strings.TrimSpace(query.ClientID),
		SubscriptionID: strings.TrimSpace(query.SubscriptionID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// UpcomingInvoices previews the cycles falling due within the configured
// horizon without creating anything.
func (s *Server) UpcomingInvoices(c *gin.Context) {
	resp, err := s.billingSvc.UpcomingInvoices(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
