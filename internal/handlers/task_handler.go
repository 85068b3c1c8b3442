package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TaskRequest is the payload for creating and updating a task.
type TaskRequest struct {
	Title           string          `json:"title" binding:"required"`
	Description     string          `json:"description"`
	SkillRequiredID string          `json:"skillRequiredId"`
	Location        string          `json:"location"`
	MinPrice        decimal.Decimal `json:"minPrice"`
	MaxPrice        decimal.Decimal `json:"maxPrice"`
	Deadline        string          `json:"deadline"`
}

// UpdateStatusRequest represents a minimal request to change status
type UpdateStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	Resolution string `json:"resolution"`
}

type SwipeRequest struct {
	Direction string `json:"direction" binding:"required"`
}

type ApplyRequest struct {
	CoverLetter       string          `json:"coverLetter"`
	ProposedRate      decimal.Decimal `json:"proposedRate"`
	EstimatedDuration int             `json:"estimatedDuration"`
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,  // full RFC3339
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (req TaskRequest) input() (services.TaskInput, error) {
	in := services.TaskInput{
		Title:           req.Title,
		Description:     req.Description,
		SkillRequiredID: strings.TrimSpace(req.SkillRequiredID),
		Location:        req.Location,
		MinPrice:        req.MinPrice,
		MaxPrice:        req.MaxPrice,
	}
	if req.Deadline != "" {
		deadline, ok := parseDateFlexible(req.Deadline)
		if !ok {
			return in, apperr.Validation("Invalid deadline '%s'", req.Deadline)
		}
		in.Deadline = &deadline
	}
	return in, nil
}

// CreateTask handles POST /api/v1/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req TaskRequest
	if !bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		_ = c.Error(err)
		return
	}

	task, err := h.svc.Tasks.CreateTask(c.Request.Context(), userID, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTasks handles GET /api/v1/tasks
// Query params: status, page (default 1), limit (default 5), sort (asc|desc on created_at, default desc)
func (h *Handler) GetTasks(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit < 1 {
		limit = 5
	}

	result, err := h.svc.Tasks.ListTasks(c.Request.Context(), services.TaskQuery{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
		Sort:   strings.ToLower(c.DefaultQuery("sort", "desc")),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": result.Tasks,
		"count": len(result.Tasks),
		"total": result.Total,
		"page":  result.Page,
		"limit": result.Limit,
	})
}

// GetTaskByID handles GET /api/v1/tasks/:id
func (h *Handler) GetTaskByID(c *gin.Context) {
	task, err := h.svc.Tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetMyTasks handles GET /api/v1/tasks/my?type=posted|applied
func (h *Handler) GetMyTasks(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var (
		tasks []services.TaskView
		err   error
	)
	switch strings.ToLower(c.DefaultQuery("type", "posted")) {
	case "posted":
		tasks, err = h.svc.Tasks.PostedTasks(c.Request.Context(), userID)
	case "applied":
		tasks, err = h.svc.Tasks.AppliedTasks(c.Request.Context(), userID)
	default:
		err = apperr.Validation("type must be 'posted' or 'applied'")
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// GetSwipeDeck handles GET /api/v1/tasks/swipe
func (h *Handler) GetSwipeDeck(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	tasks, err := h.svc.Tasks.TasksForSwiping(c.Request.Context(), userID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// UpdateTask handles PUT /api/v1/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req TaskRequest
	if !bind(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		_ = c.Error(err)
		return
	}

	task, err := h.svc.Tasks.UpdateTask(c.Request.Context(), c.Param("id"), in, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus handles PATCH /api/v1/tasks/:id/status
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bind(c, &req) {
		return
	}

	task, err := h.svc.Tasks.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req.Status, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *Handler) DeleteTask(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	if err := h.svc.Tasks.DeleteTask(c.Request.Context(), c.Param("id"), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// SwipeTask handles POST /api/v1/tasks/:id/swipe
func (h *Handler) SwipeTask(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req SwipeRequest
	if !bind(c, &req) {
		return
	}

	swipe, err := h.svc.Tasks.SwipeTask(c.Request.Context(), c.Param("id"), userID, req.Direction)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, swipe)
}

// ApplyToTask handles POST /api/v1/tasks/:id/apply
func (h *Handler) ApplyToTask(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req ApplyRequest
	if !bind(c, &req) {
		return
	}

	app, err := h.svc.Tasks.ApplyToTask(c.Request.Context(), c.Param("id"), services.ApplicationInput{
		CoverLetter:       req.CoverLetter,
		ProposedRate:      req.ProposedRate,
		EstimatedDuration: req.EstimatedDuration,
	}, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// GetApplications handles GET /api/v1/tasks/:id/applications
func (h *Handler) GetApplications(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	apps, err := h.svc.Tasks.ListApplications(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

// UpdateApplicationStatus handles PATCH /api/v1/applications/:id/status
func (h *Handler) UpdateApplicationStatus(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bind(c, &req) {
		return
	}

	app, err := h.svc.Tasks.UpdateApplicationStatus(c.Request.Context(), c.Param("id"), req.Status, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, app)
}
