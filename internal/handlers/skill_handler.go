package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SkillRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetSkills handles GET /api/v1/skills?q=
func (h *Handler) GetSkills(c *gin.Context) {
	skills, err := h.svc.Skills.SearchSkills(c.Request.Context(), c.Query("q"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills, "count": len(skills)})
}

// CreateSkill handles POST /api/v1/skills
func (h *Handler) CreateSkill(c *gin.Context) {
	var req SkillRequest
	if !bind(c, &req) {
		return
	}
	skill, err := h.svc.Skills.CreateSkill(c.Request.Context(), req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, skill)
}

// GetSkill handles GET /api/v1/skills/:id
func (h *Handler) GetSkill(c *gin.Context) {
	skill, err := h.svc.Skills.GetSkill(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

// DeleteSkill handles DELETE /api/v1/skills/:id
func (h *Handler) DeleteSkill(c *gin.Context) {
	if err := h.svc.Skills.DeleteSkill(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Skill deleted successfully"})
}

// GetSkillTasks handles GET /api/v1/skills/:id/tasks
func (h *Handler) GetSkillTasks(c *gin.Context) {
	tasks, err := h.svc.Skills.TasksBySkill(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// GetSkillUsers handles GET /api/v1/skills/:id/users
func (h *Handler) GetSkillUsers(c *gin.Context) {
	users, err := h.svc.Skills.UsersBySkill(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// GetSkillDemand handles GET /api/v1/skills/:id/demand
func (h *Handler) GetSkillDemand(c *gin.Context) {
	demand, err := h.svc.Skills.Demand(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skillId": c.Param("id"), "openTasks": demand})
}
