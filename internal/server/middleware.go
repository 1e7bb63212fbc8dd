package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	userdomain "github.com/kekeligroup/backoffice/internal/user/domain"
)

const (
	headerCronSecret = "x-cron-secret"
	headerUserID     = "x-user-id"
	headerUserRole   = "x-user-role"
)

// CronAuthRequired gates the scheduler trigger endpoints behind a shared
// secret. An unset secret locks the endpoints rather than opening them.
func (s *Server) CronAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.cfg.CronSecret
		if secret == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		provided := c.GetHeader(headerCronSecret)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// ObserverRequired admits only admin and manager identities, as resolved by
// the upstream proxy into the identity headers.
func (s *Server) ObserverRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := userdomain.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(headerUserRole))))
		if role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !role.IsObserver() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// currentUserID resolves the acting user from the identity headers.
func currentUserID(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.GetHeader(headerUserID))
	if raw == "" {
		return 0, ErrUnauthorized
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, ErrUnauthorized
	}
	return id, nil
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return "auth", payload.Type
	case status == http.StatusBadRequest:
		return "validation", payload.Type
	default:
		return "domain", payload.Type
	}
}
