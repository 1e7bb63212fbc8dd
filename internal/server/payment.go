package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckLatePaymentsAndNotify runs the delinquency scan and fans alerts out to
// the observers. Repeating the call is safe; dedup suppresses repeats.
func (s *Server) CheckLatePaymentsAndNotify(c *gin.Context) {
	res, err := s.delinquencySvc.CheckAndNotify(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// ListLatePayments reports the current late set without emitting anything.
func (s *Server) ListLatePayments(c *gin.Context) {
	late, err := s.delinquencySvc.FindLatePayments(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": late, "count": len(late)})
}
