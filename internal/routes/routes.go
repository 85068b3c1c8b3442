package routes

import (
	"net/http"

	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/handlers"
	"riteswipe-api/internal/metrics"
	"riteswipe-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps is everything the router needs.
type Deps struct {
	Handler     *handlers.Handler
	Issuer      *auth.TokenIssuer
	RateLimiter *middleware.RateLimiter
	Log         *logrus.Entry
	// Detail exposes internal error messages to clients.
	Detail bool
}

func SetupRoutes(d Deps) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(
		gin.Recovery(),
		middleware.RequestLogger(d.Log),
		middleware.Metrics(),
		middleware.CORS(),
		middleware.ErrorHandler(d.Log, d.Detail),
	)

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "RiteSwipe API is running",
		})
	})
	ginRouter.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := d.Handler
	api := ginRouter.Group("/api/v1")

	// Public routes (no authentication required)
	public := api.Group("/auth")
	if d.RateLimiter != nil {
		public.Use(d.RateLimiter.Handler())
	}
	{
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.Issuer))
	if d.RateLimiter != nil {
		protected.Use(d.RateLimiter.Handler())
	}
	{
		protected.GET("/ws", h.WebSocket)

		protected.GET("/tasks", h.GetTasks)
		protected.POST("/tasks", h.CreateTask)
		protected.GET("/tasks/my", h.GetMyTasks)
		protected.GET("/tasks/swipe", h.GetSwipeDeck)
		protected.GET("/tasks/:id", h.GetTaskByID)
		protected.PUT("/tasks/:id", h.UpdateTask)
		protected.DELETE("/tasks/:id", h.DeleteTask)
		protected.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
		protected.POST("/tasks/:id/swipe", h.SwipeTask)
		protected.POST("/tasks/:id/apply", h.ApplyToTask)
		protected.GET("/tasks/:id/applications", h.GetApplications)
		protected.PATCH("/applications/:id/status", h.UpdateApplicationStatus)

		protected.POST("/tasks/:id/escrow", h.CreateEscrow)
		protected.GET("/tasks/:id/escrow", h.GetEscrow)
		protected.POST("/tasks/:id/release", h.ReleaseEscrow)
		protected.POST("/tasks/:id/refund", h.RefundEscrow)
		protected.GET("/escrow/held", h.GetHeldAmount)
		protected.GET("/escrow/payments", h.GetEscrowPayments)

		protected.POST("/tasks/:id/reviews", h.ReviewTask)
		protected.GET("/tasks/:id/reviews", h.GetTaskReviews)
		protected.POST("/tasks/:id/disputes", h.CreateDispute)
		protected.GET("/tasks/:id/disputes", h.GetTaskDisputes)
		protected.PATCH("/disputes/:id/status", h.UpdateDisputeStatus)

		protected.GET("/users/profile", h.GetProfile)
		protected.PUT("/users/profile", h.UpdateProfile)
		protected.GET("/users/skills", h.GetMySkills)
		protected.POST("/users/skills", h.AddSkill)
		protected.DELETE("/users/skills/:id", h.RemoveSkill)
		protected.GET("/users/:id", h.GetUser)
		protected.GET("/users/:id/reviews", h.GetUserReviews)
		protected.GET("/users/:id/stats", h.GetUserStats)

		protected.GET("/skills", h.GetSkills)
		protected.POST("/skills", h.CreateSkill)
		protected.GET("/skills/:id", h.GetSkill)
		protected.DELETE("/skills/:id", h.DeleteSkill)
		protected.GET("/skills/:id/tasks", h.GetSkillTasks)
		protected.GET("/skills/:id/users", h.GetSkillUsers)
		protected.GET("/skills/:id/demand", h.GetSkillDemand)

		protected.GET("/notifications", h.GetNotifications)
		protected.GET("/notifications/unread/count", h.GetUnreadCount)
		protected.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		protected.POST("/notifications/:id/read", h.MarkNotificationRead)
		protected.DELETE("/notifications/:id", h.DeleteNotification)
	}

	return ginRouter
}
