package routes

import (
	"net/http"
	"sort"
	"time"

	"project-management-api/internal/attachment"
	"project-management-api/internal/auth"
	"project-management-api/internal/config"
	"project-management-api/internal/handlers"
	"project-management-api/internal/identity"
	"project-management-api/internal/metrics"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/team"
	"project-management-api/internal/work"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Logger      *zap.Logger
	Config      config.Config
	DB          *gorm.DB
	Tokens      *auth.Tokens
	Hub         *realtime.Hub
	Identity    *identity.Service
	Teams       *team.Service
	Work        *work.Service
	Attachments *attachment.Service
}

// NewDeps builds the managers over db. Attachments deleted through the work
// hierarchy are purged from blobs.
func NewDeps(logger *zap.Logger, cfg config.Config, db *gorm.DB, blobs attachment.BlobStore) Deps {
	sugar := logger.Sugar()
	attachments := attachment.NewService(sugar.Named("attachment"), db, blobs)
	return Deps{
		Logger:      logger,
		Config:      cfg,
		DB:          db,
		Tokens:      auth.NewTokens(cfg.JWT),
		Hub:         realtime.NewHub(sugar.Named("realtime")),
		Identity:    identity.NewService(sugar.Named("identity"), db),
		Teams:       team.NewService(sugar.Named("team"), db),
		Work:        work.NewService(sugar.Named("work"), db, attachments),
		Attachments: attachments,
	}
}

func SetupRoutes(d Deps) *gin.Engine {
	logger := d.Logger.Sugar()

	authHandler := handlers.NewAuthHandler(logger, d.Identity, d.Tokens)
	employeeHandler := handlers.NewEmployeeHandler(logger, d.Identity, d.Teams)
	projectHandler := handlers.NewProjectHandler(logger, d.Hub, d.Work)
	taskHandler := handlers.NewTaskHandler(logger, d.Hub, d.Work)
	subTaskHandler := handlers.NewSubTaskHandler(logger, d.Hub, d.Work)
	teamHandler := handlers.NewTeamHandler(logger, d.Hub, d.Teams)
	attachmentHandler := handlers.NewAttachmentHandler(logger, d.Hub, d.Attachments, d.Work)
	wsHandler := handlers.NewWSHandler(logger, d.Hub)

	ginRouter := gin.New()
	if d.Config.Metrics.Enabled {
		ginRouter.Use(metrics.GinMiddleware)
	}
	ginRouter.Use(ginzap.GinzapWithConfig(d.Logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Skipper: func(c *gin.Context) bool {
			return c.Request.URL.Path == "/metrics" && c.Request.Method == http.MethodGet
		},
	}))
	ginRouter.Use(ginzap.RecoveryWithZap(d.Logger, true))
	ginRouter.Use(cors(d.Config.CORSOrigin))

	ginRouter.GET("/health", func(c *gin.Context) {
		if d.DB != nil {
			if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})
	if d.Config.Metrics.Enabled {
		ginRouter.GET("/metrics", metrics.Handler())
	}

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.GET("/roles", employeeHandler.ListRoles)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware(d.Tokens))
	{
		protectedRoutes.POST("/logout", authHandler.Logout)
		protectedRoutes.GET("/me", authHandler.Me)
		protectedRoutes.GET("/ws", wsHandler.Serve)

		protectedRoutes.GET("/employees", employeeHandler.ListEmployees)
		protectedRoutes.GET("/employees/:id", employeeHandler.GetEmployee)
		protectedRoutes.GET("/employees/:id/teams", employeeHandler.TeamsOf)

		protectedRoutes.GET("/projects", projectHandler.GetProjects)
		protectedRoutes.GET("/projects/:id", projectHandler.GetProjectByID)
		protectedRoutes.POST("/projects", projectHandler.CreateProject)
		protectedRoutes.PUT("/projects/:id", projectHandler.UpdateProject)
		protectedRoutes.PATCH("/projects/:id", projectHandler.UpdateProject)
		protectedRoutes.PUT("/projects/:id/progress", projectHandler.UpdateProgress)
		protectedRoutes.DELETE("/projects/:id", projectHandler.DeleteProject)

		protectedRoutes.GET("/tasks", taskHandler.GetTasks)
		protectedRoutes.GET("/tasks/:id", taskHandler.GetTaskByID)
		protectedRoutes.POST("/tasks", taskHandler.CreateTask)
		protectedRoutes.PUT("/tasks/:id", taskHandler.UpdateTask)
		protectedRoutes.DELETE("/tasks/:id", taskHandler.DeleteTask)
		protectedRoutes.POST("/tasks/:id/assignees", taskHandler.AssignEmployees)
		protectedRoutes.DELETE("/tasks/:id/assignees/:employeeId", taskHandler.UnassignEmployee)
		protectedRoutes.GET("/tasks/:id/subtasks/progress", subTaskHandler.Progress)
		protectedRoutes.GET("/tasks/:id/attachments/revisions/:revision", attachmentHandler.GetByRevision)

		protectedRoutes.GET("/subtasks", subTaskHandler.GetSubTasks)
		protectedRoutes.GET("/subtasks/:id", subTaskHandler.GetSubTaskByID)
		protectedRoutes.POST("/subtasks", subTaskHandler.CreateSubTask)
		protectedRoutes.PUT("/subtasks/:id", subTaskHandler.UpdateSubTask)
		protectedRoutes.PATCH("/subtasks/:id/status", subTaskHandler.UpdateSubTaskStatus)
		protectedRoutes.DELETE("/subtasks/:id", subTaskHandler.DeleteSubTask)

		protectedRoutes.GET("/teams", teamHandler.GetTeams)
		protectedRoutes.GET("/teams/:id", teamHandler.GetTeamByID)
		protectedRoutes.POST("/teams", teamHandler.CreateTeam)
		protectedRoutes.PUT("/teams/:id", teamHandler.UpdateTeam)
		protectedRoutes.DELETE("/teams/:id", teamHandler.DeleteTeam)

		protectedRoutes.GET("/team-members", teamHandler.GetMembers)
		protectedRoutes.POST("/team-members", teamHandler.AddMember)
		protectedRoutes.PATCH("/team-members/:id", teamHandler.ChangeRole)
		protectedRoutes.DELETE("/team-members/:id", teamHandler.RemoveMember)

		protectedRoutes.GET("/attachments", attachmentHandler.GetAttachments)
		protectedRoutes.GET("/attachments/:id", attachmentHandler.GetAttachmentByID)
		protectedRoutes.POST("/attachments", attachmentHandler.AddAttachment)
		protectedRoutes.POST("/attachments/upload", attachmentHandler.Upload)
		protectedRoutes.GET("/attachments/:id/download", attachmentHandler.Download)
		protectedRoutes.DELETE("/attachments/:id", attachmentHandler.DeleteAttachment)
	}

	adminRoutes := protectedRoutes.Group("")
	adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
	{
		adminRoutes.POST("/roles", employeeHandler.CreateRole)
		adminRoutes.DELETE("/roles/:id", employeeHandler.DeleteRole)
		adminRoutes.PUT("/employees/:id/role", employeeHandler.AssignRole)
	}

	return ginRouter
}

// cors answers preflight requests and sets the allow headers for origin.
func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Table lists the registered routes as sorted "METHOD PATH" lines.
func Table(r *gin.Engine) []string {
	var lines []string
	for _, route := range r.Routes() {
		lines = append(lines, route.Method+" "+route.Path)
	}
	sort.Strings(lines)
	return lines
}
