package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/shuweic/mp3/internal/middleware"
	"github.com/shuweic/mp3/internal/repository"
	"github.com/shuweic/mp3/internal/services"
	"github.com/shuweic/mp3/internal/store"
)

// NewRouter wires the repositories, services and handlers on db.
func NewRouter(log *slog.Logger, db store.Store) *gin.Engine {
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	userHandler := NewUserHandler(services.NewUserService(userRepo, taskRepo))
	taskHandler := NewTaskHandler(services.NewTaskService(taskRepo, userRepo))
	healthHandler := NewHealthHandler(db)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.ErrorHandler(log))
	r.NoRoute(middleware.NotFound)

	r.GET("/health", healthHandler.Check)

	api := r.Group("/api")
	{
		users := api.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.ReplaceUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.ReplaceTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}
	}

	return r
}
