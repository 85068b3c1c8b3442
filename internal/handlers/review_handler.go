package handlers

import (
	"net/http"

	"riteswipe-api/internal/services"

	"github.com/gin-gonic/gin"
)

type ReviewRequest struct {
	ReviewedUserID string `json:"reviewedUserId" binding:"required"`
	Rating         int    `json:"rating" binding:"required"`
	Comment        string `json:"comment"`
}

type DisputeRequest struct {
	Reason   string `json:"reason" binding:"required"`
	Evidence string `json:"evidence"`
}

// ReviewTask handles POST /api/v1/tasks/:id/reviews
func (h *Handler) ReviewTask(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if !bind(c, &req) {
		return
	}

	review, err := h.svc.Reviews.ReviewTask(c.Request.Context(), c.Param("id"), services.ReviewInput{
		ReviewedUserID: req.ReviewedUserID,
		Rating:         req.Rating,
		Comment:        req.Comment,
	}, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// GetTaskReviews handles GET /api/v1/tasks/:id/reviews
func (h *Handler) GetTaskReviews(c *gin.Context) {
	reviews, err := h.svc.Reviews.ListTaskReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

// CreateDispute handles POST /api/v1/tasks/:id/disputes
func (h *Handler) CreateDispute(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req DisputeRequest
	if !bind(c, &req) {
		return
	}

	dispute, err := h.svc.Reviews.CreateDispute(c.Request.Context(), c.Param("id"), services.DisputeInput{
		Reason:   req.Reason,
		Evidence: req.Evidence,
	}, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// GetTaskDisputes handles GET /api/v1/tasks/:id/disputes
func (h *Handler) GetTaskDisputes(c *gin.Context) {
	disputes, err := h.svc.Reviews.ListTaskDisputes(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": disputes, "count": len(disputes)})
}

// UpdateDisputeStatus handles PATCH /api/v1/disputes/:id/status
func (h *Handler) UpdateDisputeStatus(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bind(c, &req) {
		return
	}

	dispute, err := h.svc.Reviews.UpdateDisputeStatus(c.Request.Context(), c.Param("id"), req.Status, req.Resolution, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
