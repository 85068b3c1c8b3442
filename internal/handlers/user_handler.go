package handlers

import (
	"net/http"

	"riteswipe-api/internal/services"

	"github.com/gin-gonic/gin"
)

type ProfileRequest struct {
	FullName       *string `json:"fullName"`
	PhoneNumber    *string `json:"phoneNumber"`
	ProfilePicture *string `json:"profilePicture"`
	Bio            *string `json:"bio"`
}

type UserSkillRequest struct {
	SkillID string `json:"skillId" binding:"required"`
}

// GetProfile handles GET /api/v1/users/profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	h.writeUser(c, userID)
}

// GetUser handles GET /api/v1/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	h.writeUser(c, c.Param("id"))
}

func (h *Handler) writeUser(c *gin.Context, userID string) {
	user, err := h.svc.Users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/v1/users/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.Users.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		FullName:       req.FullName,
		PhoneNumber:    req.PhoneNumber,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetMySkills handles GET /api/v1/users/skills
func (h *Handler) GetMySkills(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	skills, err := h.svc.Users.ListSkills(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills, "count": len(skills)})
}

// AddSkill handles POST /api/v1/users/skills
func (h *Handler) AddSkill(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req UserSkillRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Users.AddSkill(c.Request.Context(), userID, req.SkillID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"skillId": req.SkillID})
}

// RemoveSkill handles DELETE /api/v1/users/skills/:id
func (h *Handler) RemoveSkill(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	if err := h.svc.Users.RemoveSkill(c.Request.Context(), userID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUserReviews handles GET /api/v1/users/:id/reviews
func (h *Handler) GetUserReviews(c *gin.Context) {
	reviews, err := h.svc.Users.GetReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	rating, err := h.svc.Users.GetRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews), "averageRating": rating})
}

// GetUserStats handles GET /api/v1/users/:id/stats
func (h *Handler) GetUserStats(c *gin.Context) {
	stats, err := h.svc.Users.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
