package handlers

import (
	"net/http"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.Users.Register(c.Request.Context(), services.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.issuer.Generate(user.ID, user.Email)
	if err != nil {
		_ = c.Error(apperr.Internal("generating token", err))
		return
	}
	c.JSON(status, AuthResponse{User: user, Token: token})
}
