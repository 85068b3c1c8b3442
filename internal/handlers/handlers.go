// Package handlers exposes the marketplace services over HTTP and websocket.
// Handlers read the caller from the JWT middleware and report failures with
// c.Error; middleware.ErrorHandler renders them.
package handlers

import (
	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/middleware"
	"riteswipe-api/internal/realtime"
	"riteswipe-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler serves every API route.
type Handler struct {
	svc    *services.Services
	issuer *auth.TokenIssuer
	hub    *realtime.Hub
	log    *logrus.Entry
}

func New(svc *services.Services, issuer *auth.TokenIssuer, hub *realtime.Hub, log *logrus.Entry) *Handler {
	return &Handler{svc: svc, issuer: issuer, hub: hub, log: log}
}

// bind decodes the JSON body into req, recording a Validation error on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperr.Validation("Invalid request body: %v", err))
		return false
	}
	return true
}

// caller returns the authenticated user id, recording Unauthorized if absent.
func caller(c *gin.Context) (string, bool) {
	userID := middleware.CallerID(c)
	if userID == "" {
		_ = c.Error(apperr.Unauthorized("User ID not found in token"))
		return "", false
	}
	return userID, true
}
