package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cron handlers mirror the scheduler jobs so an external trigger can drive
// them over HTTP. Each is idempotent; re-invocation produces no duplicate
// invoices, transitions or alerts.

func (s *Server) CronGenerateInvoices(c *gin.Context) {
	res, err := s.billingSvc.GenerateDueInvoices(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) CronCheckLatePayments(c *gin.Context) {
	res, err := s.delinquencySvc.CheckAndNotify(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (s *Server) CronReconcileStatus(c *gin.Context) {
	res, err := s.subscriptionSvc.ReconcileLateStatuses(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
